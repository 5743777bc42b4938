package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

const entryColumns = `id, flight_id, cabin_class, owner_user_id, seats, priority, status,
	hold_id, created_at, offered_at, offer_expires_at, updated_at`

func scanWaitlistEntry(row rowScanner) (*model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	var holdID sql.NullString
	var offeredAt, offerExpiresAt sql.NullTime
	var status string
	if err := row.Scan(
		&e.ID, &e.Pool.FlightID, &e.Pool.Cabin, &e.OwnerUserID, &e.Seats, &e.Priority, &status,
		&holdID, &e.CreatedAt, &offeredAt, &offerExpiresAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Status = model.WaitlistStatus(status)
	e.HoldID = holdID.String
	if offeredAt.Valid {
		t := offeredAt.Time
		e.OfferedAt = &t
	}
	if offerExpiresAt.Valid {
		t := offerExpiresAt.Time
		e.OfferExpiresAt = &t
	}
	return &e, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// insertWaitlistEntry writes a new entry.  The unique key on
// (flight_id, cabin_class, priority) rejects a reused priority.
func insertWaitlistEntry(ctx context.Context, q queryer, e *model.WaitlistEntry) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO waitlist_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Pool.FlightID, e.Pool.Cabin, e.OwnerUserID, e.Seats, e.Priority, string(e.Status),
		nullString(e.HoldID), e.CreatedAt.UTC(), nullTime(e.OfferedAt), nullTime(e.OfferExpiresAt), e.UpdatedAt.UTC(),
	)
	return classify("insert waitlist entry "+e.ID, err)
}

func lockWaitlistEntry(ctx context.Context, q queryer, key model.PoolKey, id string) (*model.WaitlistEntry, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM waitlist_entries
		  WHERE id = ? AND flight_id = ? AND cabin_class = ?
		  FOR UPDATE`,
		id, key.FlightID, key.Cabin,
	)
	e, err := scanWaitlistEntry(row)
	if err != nil {
		return nil, classify("lock waitlist entry "+id, err)
	}
	return e, nil
}

func updateWaitlistEntry(ctx context.Context, q queryer, e *model.WaitlistEntry) error {
	res, err := q.ExecContext(ctx,
		`UPDATE waitlist_entries
		    SET status = ?, hold_id = ?, offered_at = ?, offer_expires_at = ?, updated_at = ?
		  WHERE id = ?`,
		string(e.Status), nullString(e.HoldID), nullTime(e.OfferedAt), nullTime(e.OfferExpiresAt), e.UpdatedAt.UTC(), e.ID,
	)
	if err != nil {
		return classify("update waitlist entry "+e.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update waitlist entry %s: %w", e.ID, ErrNotFound)
	}
	return nil
}

// headWaiting returns the lowest-priority waiting entry or nil.
func headWaiting(ctx context.Context, q queryer, key model.PoolKey) (*model.WaitlistEntry, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM waitlist_entries
		  WHERE flight_id = ? AND cabin_class = ? AND status = 'waiting'
		  ORDER BY priority
		  LIMIT 1
		  FOR UPDATE`,
		key.FlightID, key.Cabin,
	)
	e, err := scanWaitlistEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify("head waiting "+key.String(), err)
	}
	return e, nil
}

func countWaitingBefore(ctx context.Context, q queryer, key model.PoolKey, priority int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waitlist_entries
		  WHERE flight_id = ? AND cabin_class = ? AND status = 'waiting' AND priority < ?`,
		key.FlightID, key.Cabin, priority,
	).Scan(&n)
	if err != nil {
		return 0, classify("count waiting "+key.String(), err)
	}
	return n, nil
}

// GetWaitlistEntry implements Store.
func (s *MySQLStore) GetWaitlistEntry(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM waitlist_entries WHERE id = ?`, id)
	e, err := scanWaitlistEntry(row)
	if err != nil {
		return nil, classify("get waitlist entry "+id, err)
	}
	return e, nil
}

// OverdueOffers implements Store.
func (s *MySQLStore) OverdueOffers(ctx context.Context, now time.Time, limit int) ([]model.WaitlistEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM waitlist_entries
		  WHERE status = 'offered' AND offer_expires_at <= ?
		  ORDER BY offer_expires_at
		  LIMIT ?`,
		now.UTC(), limit,
	)
	if err != nil {
		return nil, classify("overdue offers", err)
	}
	defer rows.Close()
	entries := make([]model.WaitlistEntry, 0)
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, classify("scan overdue offer", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("overdue offers", err)
	}
	return entries, nil
}
