package model

import "time"

// EventType names a state transition published to the notification and
// audit channel.
type EventType string

const (
	EventHoldCreated       EventType = "hold.created"
	EventHoldReleased      EventType = "hold.released"
	EventHoldConverted     EventType = "hold.converted"
	EventHoldExpired       EventType = "hold.expired"
	EventWaitlistEnqueued  EventType = "waitlist.enqueued"
	EventWaitlistOffered   EventType = "waitlist.offered"
	EventWaitlistConfirmed EventType = "waitlist.confirmed"
	EventWaitlistRemoved   EventType = "waitlist.removed"
)

// Event is emitted after a pool transaction commits.  Consumers must not
// assume exactly-once delivery.
type Event struct {
	Type            EventType `json:"type"`
	FlightID        string    `json:"flight_id"`
	Cabin           string    `json:"cabin_class"`
	HoldID          string    `json:"hold_id,omitempty"`
	WaitlistEntryID string    `json:"waitlist_entry_id,omitempty"`
	BookingID       string    `json:"booking_id,omitempty"`
	OwnerUserID     string    `json:"owner_user_id,omitempty"`
	Seats           int       `json:"seats"`
	Reason          string    `json:"reason,omitempty"`
	ExpiresAt       string    `json:"expires_at,omitempty"`
	OccurredAt      string    `json:"occurred_at"`
}

// NewEvent fills the pool and timestamp fields common to every event.
func NewEvent(t EventType, pool PoolKey, at time.Time) Event {
	return Event{
		Type:       t,
		FlightID:   pool.FlightID,
		Cabin:      pool.Cabin.String(),
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
}
