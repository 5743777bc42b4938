package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("op", nil))
	assert.ErrorIs(t, classify("get hold", sql.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, classify("insert hold", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}), ErrConflict)
	assert.ErrorIs(t, classify("begin", driver.ErrBadConn), ErrUnavailable)
	assert.ErrorIs(t, classify("query", mysql.ErrInvalidConn), ErrUnavailable)

	other := classify("query", &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"})
	assert.False(t, errors.Is(other, ErrNotFound) || errors.Is(other, ErrConflict) || errors.Is(other, ErrUnavailable))
	assert.Contains(t, other.Error(), "query")
}
