package model

import (
	"fmt"
	"time"
)

// WaitlistStatus is the lifecycle state of a WaitlistEntry.
type WaitlistStatus string

const (
	WaitlistWaiting   WaitlistStatus = "waiting"
	WaitlistOffered   WaitlistStatus = "offered"
	WaitlistConfirmed WaitlistStatus = "confirmed"
	WaitlistExpired   WaitlistStatus = "expired"
	WaitlistCancelled WaitlistStatus = "cancelled"
)

// Terminal reports whether the entry has left the queue for good.
func (s WaitlistStatus) Terminal() bool {
	return s == WaitlistConfirmed || s == WaitlistExpired || s == WaitlistCancelled
}

// RemoveReason is why an entry is being taken off the waitlist.  Each
// reason maps onto the terminal status of the same name.
type RemoveReason string

const (
	RemoveConfirmed RemoveReason = "confirmed"
	RemoveCancelled RemoveReason = "cancelled"
	RemoveExpired   RemoveReason = "expired"
)

// Status returns the terminal status the reason leads to.
func (r RemoveReason) Status() (WaitlistStatus, error) {
	switch r {
	case RemoveConfirmed:
		return WaitlistConfirmed, nil
	case RemoveCancelled:
		return WaitlistCancelled, nil
	case RemoveExpired:
		return WaitlistExpired, nil
	}
	return "", fmt.Errorf("unknown remove reason %q", string(r))
}

// WaitlistEntry is a queued request for seats that could not be granted
// immediately.  Priority is handed out from the pool's counter, starts at
// 1 and is never reused, so arrival order stays stable after removals.
//
// Fields:
//
//	ID             – uuid primary key.
//	Pool           – pool the entry waits on.
//	OwnerUserID    – requesting user.
//	Seats          – seats requested.
//	Priority       – per-pool arrival sequence number.
//	Status         – waiting, offered, confirmed, expired or cancelled.
//	HoldID         – hold created for the offer (nil until offered).
//	CreatedAt      – enqueue time.
//	OfferedAt      – promotion time (nil until offered).
//	OfferExpiresAt – deadline to accept the offer (nil until offered).
//	UpdatedAt      – last status change.
type WaitlistEntry struct {
	ID             string         `json:"id"`                         // waitlist_entries.id
	Pool           PoolKey        `json:"pool"`                       // waitlist_entries.flight_id, cabin_class
	OwnerUserID    string         `json:"owner_user_id"`              // waitlist_entries.owner_user_id
	Seats          int            `json:"seats"`                      // waitlist_entries.seats
	Priority       int64          `json:"priority"`                   // waitlist_entries.priority
	Status         WaitlistStatus `json:"status"`                     // waitlist_entries.status
	HoldID         string         `json:"hold_id,omitempty"`          // waitlist_entries.hold_id (nullable)
	CreatedAt      time.Time      `json:"created_at"`                 // waitlist_entries.created_at
	OfferedAt      *time.Time     `json:"offered_at,omitempty"`       // waitlist_entries.offered_at (nullable)
	OfferExpiresAt *time.Time     `json:"offer_expires_at,omitempty"` // waitlist_entries.offer_expires_at (nullable)
	UpdatedAt      time.Time      `json:"updated_at"`                 // waitlist_entries.updated_at
}
