// Package queue carries seat events to the message broker and back.
// Notifiers publish model.Event values after the pool transaction that
// produced them has committed; the audit consumer appends them to a log
// file.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// SeatEventsQueue is the durable RabbitMQ queue seat events are routed to.
const SeatEventsQueue = "seat.events"

// Encode serialises an event for the wire.
func Encode(ev model.Event) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	return b, nil
}

// Decode is the inverse of Encode.
func Decode(body []byte) (model.Event, error) {
	var ev model.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return model.Event{}, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return model.Event{}, fmt.Errorf("event without type")
	}
	return ev, nil
}

// partitionKey keeps events of one pool in order on partitioned brokers.
func partitionKey(ev model.Event) string {
	return ev.FlightID + "/" + ev.Cabin
}
