// Package repository defines the storage ports used by the allocation
// core together with their MySQL and in-memory implementations.  The
// sentinel errors below let the service layer distinguish a missing row
// from a lost race or an unreachable database without inspecting driver
// specific errors.
package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested flight, pool, hold or
// waitlist entry does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write lost an optimistic version check
// or would break a pool invariant.  The transaction has been rolled back.
var ErrConflict = errors.New("conflict")

// ErrUnavailable is returned when the database cannot be reached.
var ErrUnavailable = errors.New("store unavailable")

// classify maps driver errors onto the sentinels above.  sql.ErrNoRows
// becomes ErrNotFound, a duplicate key becomes ErrConflict and
// connection-level failures become ErrUnavailable.
// Anything else is returned unchanged, wrapped with op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, mysql.ErrInvalidConn), errors.Is(err, sql.ErrConnDone):
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
