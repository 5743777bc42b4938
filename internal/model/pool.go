package model

import (
	"fmt"
	"time"
)

// PoolKey identifies one arbitration unit: the seats of a single cabin on
// a single flight.  Every counter, hold and waitlist entry belongs to
// exactly one pool.
type PoolKey struct {
	FlightID string     `json:"flight_id"`
	Cabin    CabinClass `json:"cabin_class"`
}

func (k PoolKey) String() string { return fmt.Sprintf("%s/%s", k.FlightID, k.Cabin) }

// Validate rejects keys with an empty flight or an unknown cabin.
func (k PoolKey) Validate() error {
	if k.FlightID == "" {
		return fmt.Errorf("flight id is required")
	}
	if !k.Cabin.Valid() {
		return fmt.Errorf("invalid cabin class %d", uint8(k.Cabin))
	}
	return nil
}

// Capacity is the catalog's view of a pool.  Both values are owned by
// other systems and are read-only here.
//
// Fields:
//
//	TotalSeats – seats physically configured for the cabin.
//	SoldSeats  – seats of confirmed bookings for the cabin.
type Capacity struct {
	TotalSeats int
	SoldSeats  int
}

// PoolState is the authoritative, lock-protected record for a pool.  It
// is the single source of truth for the held-seat count; hold rows are
// never re-aggregated to recompute it.
//
// Fields:
//
//	Key          – pool identity (seat_pools primary key).
//	HeldSeats    – sum of seats over active holds.
//	WaitingCount – number of waitlist entries in status waiting.
//	NextPriority – last priority handed out; the next entry gets +1.
//	Version      – bumped on every committed write.
//	UpdatedAt    – time of the last committed write.
type PoolState struct {
	Key          PoolKey
	HeldSeats    int       // seat_pools.held_seats
	WaitingCount int       // seat_pools.waiting_count
	NextPriority int64     // seat_pools.next_priority
	Version      int64     // seat_pools.version
	UpdatedAt    time.Time // seat_pools.updated_at
}

// Flight is the subset of the flight catalog this service reads.
type Flight struct {
	ID            string    // flights.id
	FlightNumber  string    // flights.flight_number
	Origin        string    // flights.origin (IATA)
	Destination   string    // flights.destination (IATA)
	DepartureAt   time.Time // flights.departure_at (UTC)
	EconomySeats  int       // flights.economy_seats
	BusinessSeats int       // flights.business_seats
}

// Route returns the ORIGIN-DEST code used to look up historical no-show data.
func (f Flight) Route() string { return f.Origin + "-" + f.Destination }

// Seats returns the configured seat count for a cabin.
func (f Flight) Seats(c CabinClass) int {
	switch c {
	case CabinEconomy:
		return f.EconomySeats
	case CabinBusiness:
		return f.BusinessSeats
	}
	return 0
}
