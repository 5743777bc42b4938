package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// holdColumns is the column order scanHold expects.
const holdColumns = `id, flight_id, cabin_class, seats, owner_user_id, session_id,
	waitlist_entry_id, booking_id, status, created_at, expires_at, updated_at`

// scanHold reads one seat_holds row in holdColumns order.
func scanHold(row rowScanner) (*model.SeatHold, error) {
	var h model.SeatHold
	var entryID, bookingID sql.NullString
	var status string
	if err := row.Scan(
		&h.ID, &h.Pool.FlightID, &h.Pool.Cabin, &h.Seats, &h.OwnerUserID, &h.SessionID,
		&entryID, &bookingID, &status, &h.CreatedAt, &h.ExpiresAt, &h.UpdatedAt,
	); err != nil {
		return nil, err
	}
	h.WaitlistEntryID = entryID.String
	h.BookingID = bookingID.String
	h.Status = model.HoldStatus(status)
	return &h, nil
}

// insertHold writes a new hold.  Timestamps are stored as given, in UTC.
func insertHold(ctx context.Context, q queryer, h *model.SeatHold) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO seat_holds (`+holdColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.Pool.FlightID, h.Pool.Cabin, h.Seats, h.OwnerUserID, h.SessionID,
		nullString(h.WaitlistEntryID), nullString(h.BookingID), string(h.Status),
		h.CreatedAt.UTC(), h.ExpiresAt.UTC(), h.UpdatedAt.UTC(),
	)
	return classify("insert hold "+h.ID, err)
}

// lockHold reads a hold of the given pool with FOR UPDATE.
func lockHold(ctx context.Context, q queryer, key model.PoolKey, id string) (*model.SeatHold, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+holdColumns+` FROM seat_holds
		  WHERE id = ? AND flight_id = ? AND cabin_class = ?
		  FOR UPDATE`,
		id, key.FlightID, key.Cabin,
	)
	h, err := scanHold(row)
	if err != nil {
		return nil, classify("lock hold "+id, err)
	}
	return h, nil
}

// updateHold persists the mutable columns of a hold.  Seats is never
// written after insert.
func updateHold(ctx context.Context, q queryer, h *model.SeatHold) error {
	res, err := q.ExecContext(ctx,
		`UPDATE seat_holds SET status = ?, booking_id = ?, updated_at = ? WHERE id = ?`,
		string(h.Status), nullString(h.BookingID), h.UpdatedAt.UTC(), h.ID,
	)
	if err != nil {
		return classify("update hold "+h.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update hold %s: %w", h.ID, ErrNotFound)
	}
	return nil
}

// GetHold implements Store.
func (s *MySQLStore) GetHold(ctx context.Context, id string) (*model.SeatHold, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+holdColumns+` FROM seat_holds WHERE id = ?`, id)
	h, err := scanHold(row)
	if err != nil {
		return nil, classify("get hold "+id, err)
	}
	return h, nil
}

// OverdueHolds implements Store.  Served by the (status, expires_at) index.
func (s *MySQLStore) OverdueHolds(ctx context.Context, now time.Time, limit int) ([]model.SeatHold, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+holdColumns+` FROM seat_holds
		  WHERE status = 'active' AND expires_at <= ?
		  ORDER BY expires_at
		  LIMIT ?`,
		now.UTC(), limit,
	)
	if err != nil {
		return nil, classify("overdue holds", err)
	}
	defer rows.Close()
	holds := make([]model.SeatHold, 0)
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, classify("scan overdue hold", err)
		}
		holds = append(holds, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("overdue holds", err)
	}
	return holds, nil
}
