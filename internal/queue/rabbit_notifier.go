package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// RabbitNotifier publishes seat events to a durable RabbitMQ queue through
// the default exchange.  The connection is opened lazily and re-opened
// after a failed publish.
type RabbitNotifier struct {
	url   string
	queue string
	log   *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewRabbitNotifier returns a notifier for url.  No connection is made
// until the first Publish.
func NewRabbitNotifier(url, queue string, log *zap.Logger) *RabbitNotifier {
	if queue == "" {
		queue = SeatEventsQueue
	}
	return &RabbitNotifier{url: url, queue: queue, log: log}
}

func (n *RabbitNotifier) channel() (*amqp.Channel, error) {
	if n.ch != nil && !n.ch.IsClosed() {
		return n.ch, nil
	}
	n.reset()
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel open: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	n.conn, n.ch = conn, ch
	return ch, nil
}

func (n *RabbitNotifier) reset() {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		_ = n.conn.Close()
	}
	n.conn, n.ch = nil, nil
}

// Publish sends one event as a persistent JSON message.
func (n *RabbitNotifier) Publish(ctx context.Context, ev model.Event) error {
	body, err := Encode(ev)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	ch, err := n.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(ev.Type),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", n.queue, false, false, pub); err != nil {
		n.reset()
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// Close shuts the connection.
func (n *RabbitNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset()
	return nil
}
