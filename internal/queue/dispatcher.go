package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// Sink is anything that can deliver an event.
type Sink interface {
	Publish(ctx context.Context, ev model.Event) error
}

// Dispatcher decouples event delivery from the request path.  Publish
// only enqueues; a single worker delivers in order.  When the buffer is
// full the event is dropped and logged.
type Dispatcher struct {
	sink    Sink
	log     *zap.Logger
	timeout time.Duration

	events chan model.Event
	once   sync.Once
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the delivery worker.  Each delivery gets timeout.
func NewDispatcher(sink Sink, size int, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if size <= 0 {
		size = 1024
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := &Dispatcher{
		sink:    sink,
		log:     log,
		timeout: timeout,
		events:  make(chan model.Event, size),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Publish enqueues ev without blocking.
func (d *Dispatcher) Publish(_ context.Context, ev model.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("dispatcher closed, dropping event", zap.String("type", string(ev.Type)))
		return nil
	}
	select {
	case d.events <- ev:
	default:
		d.log.Warn("event buffer full, dropping event", zap.String("type", string(ev.Type)),
			zap.String("flight_id", ev.FlightID))
	}
	return nil
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.events {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.sink.Publish(ctx, ev); err != nil {
			d.log.Warn("event delivery failed", zap.String("type", string(ev.Type)),
				zap.String("flight_id", ev.FlightID), zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting events and waits for the buffer to drain or ctx
// to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.events)
		d.mu.Unlock()
	})
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
