package repository

import (
	"context"
	"time"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// Store is the durable home of pool counters, seat holds and waitlist
// entries.  All writes go through WithPool so that each pool's counters
// and detail rows change together under one exclusive lock.  Reads
// outside WithPool are unlocked and meant for reporting and lookups.
type Store interface {
	// WithPool runs fn while holding the pool's exclusive lock.  The pool
	// record is created on first use.  Writes made through tx, including
	// changes to tx.State(), are committed together when fn returns nil
	// and discarded otherwise.
	WithPool(ctx context.Context, key model.PoolKey, fn func(tx PoolTx) error) error

	// PoolSnapshot returns the committed counters of a pool.  A pool that
	// has never been written reads as all zeroes.
	PoolSnapshot(ctx context.Context, key model.PoolKey) (model.PoolState, error)

	// GetHold returns a hold by id or ErrNotFound.
	GetHold(ctx context.Context, id string) (*model.SeatHold, error)

	// GetWaitlistEntry returns an entry by id or ErrNotFound.
	GetWaitlistEntry(ctx context.Context, id string) (*model.WaitlistEntry, error)

	// CountWaitingBefore counts waiting entries of the pool whose priority
	// is lower than priority.
	CountWaitingBefore(ctx context.Context, key model.PoolKey, priority int64) (int, error)

	// OverdueHolds lists active holds with ExpiresAt at or before now,
	// oldest first, at most limit rows.
	OverdueHolds(ctx context.Context, now time.Time, limit int) ([]model.SeatHold, error)

	// OverdueOffers lists offered entries with OfferExpiresAt at or before
	// now, oldest first, at most limit rows.
	OverdueOffers(ctx context.Context, now time.Time, limit int) ([]model.WaitlistEntry, error)
}

// PoolTx is the view of one pool inside WithPool.  Every method operates
// on rows of that pool only; ids from another pool read as ErrNotFound.
type PoolTx interface {
	// State is the locked pool record.  Callers mutate it in place.
	State() *model.PoolState

	InsertHold(ctx context.Context, h *model.SeatHold) error
	// LockHold reads a hold for update.
	LockHold(ctx context.Context, id string) (*model.SeatHold, error)
	// UpdateHold persists Status, BookingID and UpdatedAt.
	UpdateHold(ctx context.Context, h *model.SeatHold) error

	InsertWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error
	// LockWaitlistEntry reads an entry for update.
	LockWaitlistEntry(ctx context.Context, id string) (*model.WaitlistEntry, error)
	// UpdateWaitlistEntry persists Status, HoldID, the offer timestamps and UpdatedAt.
	UpdateWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error
	// HeadWaiting returns the waiting entry with the lowest priority, or
	// nil when nobody is waiting.
	HeadWaiting(ctx context.Context) (*model.WaitlistEntry, error)
	// CountWaitingBefore counts waiting entries with a lower priority.
	CountWaitingBefore(ctx context.Context, priority int64) (int, error)
}

// Catalog is the flight/cabin catalog.  It is owned by another system.
type Catalog interface {
	// Capacity returns total and sold seats for a pool or ErrNotFound.
	Capacity(ctx context.Context, key model.PoolKey) (model.Capacity, error)
	// Flight returns catalog data for a flight or ErrNotFound.
	Flight(ctx context.Context, flightID string) (*model.Flight, error)
}

// NoShowSource provides historical no-show rates from analytics.
type NoShowSource interface {
	// NoShowRate returns the rate for a route; ok is false when there is
	// no history for it.
	NoShowRate(ctx context.Context, route string) (rate float64, ok bool, err error)
}

// OverbookingConfigStore persists overbooking configuration rows.
type OverbookingConfigStore interface {
	// Lookup returns the row for key, falling back to the default row.
	// ok is false when neither exists.
	Lookup(ctx context.Context, key model.PoolKey) (cfg model.OverbookingConfig, ok bool, err error)
	// Save upserts a row.  A zero FlightID writes the default row.
	Save(ctx context.Context, cfg model.OverbookingConfig) error
}
