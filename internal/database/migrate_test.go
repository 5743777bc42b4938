package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementsSkipsComments(t *testing.T) {
	got := statements("-- header\nCREATE TABLE a (x INT);\n\n-- b\nCREATE TABLE b (y INT);\n")
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE a (x INT)", got[0])
	assert.Equal(t, "CREATE TABLE b (y INT)", got[1])
}

func TestEmbeddedSchemaHasPoolTables(t *testing.T) {
	stmts := statements(schema)
	joined := strings.Join(stmts, "\n")
	for _, table := range []string{"seat_pools", "seat_holds", "waitlist_entries", "overbooking_configs", "route_no_show_stats"} {
		assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS "+table)
	}
	for _, s := range stmts {
		assert.False(t, strings.HasPrefix(s, "--"), s)
	}
}
