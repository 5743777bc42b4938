package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// AuditConsumer reads seat events from RabbitMQ and appends one line per
// event to an audit file.
type AuditConsumer struct {
	URL   string
	Queue string
	Path  string
	Log   *zap.Logger
}

// Run connects, declares the queue and consumes until ctx ends.  Broker
// failures are retried with exponential backoff capped at 30s.  A message
// that cannot be handled is rejected without requeue so that one bad
// payload cannot stall the queue.
func (c *AuditConsumer) Run(ctx context.Context) error {
	if c.Queue == "" {
		c.Queue = SeatEventsQueue
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("audit consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("audit consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("audit consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.handle(d.Body); err != nil {
			c.Log.Warn("audit consumer: handle message failed", zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *AuditConsumer) handle(body []byte) error {
	ev, err := Decode(body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir audit dir: %w", err)
	}
	f, err := os.OpenFile(c.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(AuditLine(ev)); err != nil {
		return fmt.Errorf("write audit file: %w", err)
	}
	return nil
}

// AuditLine renders an event as a single human-readable line.  Empty
// fields are omitted.
func AuditLine(ev model.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | flight=%s | cabin=%s", ev.OccurredAt, ev.Type, ev.FlightID, ev.Cabin)
	for _, kv := range [][2]string{
		{"hold_id", ev.HoldID},
		{"waitlist_entry_id", ev.WaitlistEntryID},
		{"booking_id", ev.BookingID},
		{"user_id", ev.OwnerUserID},
		{"reason", ev.Reason},
		{"expires_at", ev.ExpiresAt},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&b, " | %s=%s", kv[0], kv[1])
		}
	}
	fmt.Fprintf(&b, " | seats=%d\n", ev.Seats)
	return b.String()
}
