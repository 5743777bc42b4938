package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// KafkaNotifier writes seat events to a Kafka topic keyed by pool, so all
// events of one pool land on the same partition in order.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier returns a notifier writing to topic on brokers.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

// Publish writes one event.
func (n *KafkaNotifier) Publish(ctx context.Context, ev model.Event) error {
	msg, err := kafkaMessage(ev)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close flushes pending writes.
func (n *KafkaNotifier) Close() error { return n.writer.Close() }

func kafkaMessage(ev model.Event) (kafka.Message, error) {
	body, err := Encode(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(partitionKey(ev)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}, nil
}
