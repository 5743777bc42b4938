package model

import "time"

// HoldStatus is the lifecycle state of a SeatHold.  A hold starts active
// and leaves that state exactly once.
type HoldStatus string

const (
	HoldActive    HoldStatus = "active"
	HoldConverted HoldStatus = "converted"
	HoldExpired   HoldStatus = "expired"
	HoldReleased  HoldStatus = "released"
)

// Terminal reports whether no further transition is possible.
func (s HoldStatus) Terminal() bool { return s != HoldActive }

// SeatHold represents a temporary claim on seats in a pool while the
// owner completes payment.  Holds are never deleted; only Status (and the
// fields recording how the hold ended) change, so the table doubles as an
// audit trail.  Seats is fixed at creation.
//
// Fields:
//
//	ID              – uuid primary key.
//	Pool            – flight and cabin the seats come from.
//	Seats           – number of seats held (> 0).
//	OwnerUserID     – user the hold was granted to.
//	SessionID       – booking session that requested it.
//	WaitlistEntryID – set when the hold backs a waitlist offer.
//	BookingID       – set when the hold was converted into a booking.
//	Status          – active, converted, expired or released.
//	CreatedAt       – creation timestamp.
//	ExpiresAt       – when the sweeper may expire the hold.
//	UpdatedAt       – last status change.
type SeatHold struct {
	ID              string     `json:"id"`                          // seat_holds.id
	Pool            PoolKey    `json:"pool"`                        // seat_holds.flight_id, cabin_class
	Seats           int        `json:"seats"`                       // seat_holds.seats
	OwnerUserID     string     `json:"owner_user_id"`               // seat_holds.owner_user_id
	SessionID       string     `json:"session_id"`                  // seat_holds.session_id
	WaitlistEntryID string     `json:"waitlist_entry_id,omitempty"` // seat_holds.waitlist_entry_id (nullable)
	BookingID       string     `json:"booking_id,omitempty"`        // seat_holds.booking_id (nullable)
	Status          HoldStatus `json:"status"`                      // seat_holds.status
	CreatedAt       time.Time  `json:"created_at"`                  // seat_holds.created_at
	ExpiresAt       time.Time  `json:"expires_at"`                  // seat_holds.expires_at
	UpdatedAt       time.Time  `json:"updated_at"`                  // seat_holds.updated_at
}
