package queue

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// LogNotifier writes events to the structured log.  It is the default
// when no broker is configured.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier { return &LogNotifier{log: log} }

func (n *LogNotifier) Publish(_ context.Context, ev model.Event) error {
	n.log.Info("seat event",
		zap.String("type", string(ev.Type)),
		zap.String("flight_id", ev.FlightID),
		zap.String("cabin", ev.Cabin),
		zap.String("hold_id", ev.HoldID),
		zap.String("waitlist_entry_id", ev.WaitlistEntryID),
		zap.String("booking_id", ev.BookingID),
		zap.Int("seats", ev.Seats),
		zap.String("reason", ev.Reason),
		zap.String("occurred_at", ev.OccurredAt))
	return nil
}
