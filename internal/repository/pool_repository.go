package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so that read helpers
// can run inside or outside a pool transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// MySQLStore implements Store on top of the seat_pools, seat_holds and
// waitlist_entries tables.  Pool exclusion is a row lock on the pool's
// seat_pools row (SELECT ... FOR UPDATE) held for the duration of the
// transaction; the version column is re-checked on write so a row edited
// outside this code path is detected instead of overwritten.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a MySQLStore bound to db.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// WithPool implements Store.  The pool row is created on first use with
// INSERT IGNORE so that the following FOR UPDATE always has a row to lock.
func (s *MySQLStore) WithPool(ctx context.Context, key model.PoolKey, fn func(tx PoolTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin pool tx: %w: %v", ErrUnavailable, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT IGNORE INTO seat_pools (flight_id, cabin_class, updated_at) VALUES (?, ?, UTC_TIMESTAMP(3))`,
		key.FlightID, key.Cabin,
	); err != nil {
		return classify("ensure pool row", err)
	}
	st, err := readPool(ctx, tx, key, true)
	if err != nil {
		return err
	}
	version := st.Version

	ptx := &mysqlPoolTx{tx: tx, key: key, state: st}
	if err := fn(ptx); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE seat_pools
		    SET held_seats = ?, waiting_count = ?, next_priority = ?, version = version + 1, updated_at = UTC_TIMESTAMP(3)
		  WHERE flight_id = ? AND cabin_class = ? AND version = ?`,
		ptx.state.HeldSeats, ptx.state.WaitingCount, ptx.state.NextPriority,
		key.FlightID, key.Cabin, version,
	)
	if err != nil {
		return classify("update pool", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("update pool rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("pool %s version %d: %w", key, version, ErrConflict)
	}
	if err := tx.Commit(); err != nil {
		return classify("commit pool tx", err)
	}
	committed = true
	return nil
}

// PoolSnapshot implements Store.
func (s *MySQLStore) PoolSnapshot(ctx context.Context, key model.PoolKey) (model.PoolState, error) {
	st, err := readPool(ctx, s.db, key, false)
	if err != nil {
		if isNotFound(err) {
			return model.PoolState{Key: key}, nil
		}
		return model.PoolState{}, err
	}
	return st, nil
}

// CountWaitingBefore implements Store.
func (s *MySQLStore) CountWaitingBefore(ctx context.Context, key model.PoolKey, priority int64) (int, error) {
	return countWaitingBefore(ctx, s.db, key, priority)
}

func readPool(ctx context.Context, q queryer, key model.PoolKey, forUpdate bool) (model.PoolState, error) {
	query := `SELECT held_seats, waiting_count, next_priority, version, updated_at
	            FROM seat_pools
	           WHERE flight_id = ? AND cabin_class = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	st := model.PoolState{Key: key}
	err := q.QueryRowContext(ctx, query, key.FlightID, key.Cabin).Scan(
		&st.HeldSeats, &st.WaitingCount, &st.NextPriority, &st.Version, &st.UpdatedAt,
	)
	if err != nil {
		return model.PoolState{}, classify("read pool "+key.String(), err)
	}
	return st, nil
}

// mysqlPoolTx is the PoolTx handed to WithPool callbacks.
type mysqlPoolTx struct {
	tx    *sql.Tx
	key   model.PoolKey
	state model.PoolState
}

func (t *mysqlPoolTx) State() *model.PoolState { return &t.state }

func (t *mysqlPoolTx) InsertHold(ctx context.Context, h *model.SeatHold) error {
	if h.Pool != t.key {
		return fmt.Errorf("insert hold %s: pool mismatch", h.ID)
	}
	return insertHold(ctx, t.tx, h)
}

func (t *mysqlPoolTx) LockHold(ctx context.Context, id string) (*model.SeatHold, error) {
	return lockHold(ctx, t.tx, t.key, id)
}

func (t *mysqlPoolTx) UpdateHold(ctx context.Context, h *model.SeatHold) error {
	return updateHold(ctx, t.tx, h)
}

func (t *mysqlPoolTx) InsertWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error {
	if e.Pool != t.key {
		return fmt.Errorf("insert waitlist entry %s: pool mismatch", e.ID)
	}
	return insertWaitlistEntry(ctx, t.tx, e)
}

func (t *mysqlPoolTx) LockWaitlistEntry(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	return lockWaitlistEntry(ctx, t.tx, t.key, id)
}

func (t *mysqlPoolTx) UpdateWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error {
	return updateWaitlistEntry(ctx, t.tx, e)
}

func (t *mysqlPoolTx) HeadWaiting(ctx context.Context) (*model.WaitlistEntry, error) {
	return headWaiting(ctx, t.tx, t.key)
}

func (t *mysqlPoolTx) CountWaitingBefore(ctx context.Context, priority int64) (int, error) {
	return countWaitingBefore(ctx, t.tx, t.key, priority)
}

// nullString maps "" to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
