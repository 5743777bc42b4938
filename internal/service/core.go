package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

const tracerName = "github.com/iliyamo/flight-seat-inventory/internal/service"

var tracer = otel.Tracer(tracerName)

// Notifier receives events after the pool transaction that produced them
// has committed.  Delivery is best effort.
type Notifier interface {
	Publish(ctx context.Context, ev model.Event) error
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, model.Event) error { return nil }

// Options tunes the components built by New.  Zero fields take the
// documented defaults.
type Options struct {
	HoldTTL     time.Duration
	OfferTTL    time.Duration
	WaitlistMax int
	SweepBatch  int
	Defaults    model.OverbookingConfig

	Logger   *zap.Logger
	Notifier Notifier
	Clock    func() time.Time
	NewID    func() string
}

func (o Options) withDefaults() Options {
	if o.HoldTTL <= 0 {
		o.HoldTTL = 15 * time.Minute
	}
	if o.OfferTTL <= 0 {
		o.OfferTTL = 24 * time.Hour
	}
	if o.SweepBatch <= 0 {
		o.SweepBatch = 500
	}
	if o.Defaults == (model.OverbookingConfig{}) {
		o.Defaults = model.DefaultOverbookingConfig()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Notifier == nil {
		o.Notifier = nopNotifier{}
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// Core holds the wired components.
type Core struct {
	Policy     *OverbookingPolicy
	Status     *StatusCalculator
	Holds      *HoldRegistry
	Waitlist   *WaitlistQueue
	Allocator  *SeatAllocator
	Sweeper    *ExpirationSweeper
	Forecaster *DemandForecaster
}

// New wires every component over the given store and collaborators.
func New(store repository.Store, catalog repository.Catalog, configs repository.OverbookingConfigStore,
	noShows repository.NoShowSource, opts Options) *Core {
	opts = opts.withDefaults()
	log := opts.Logger

	policy := NewOverbookingPolicy(catalog, store, configs, noShows, opts.Defaults, log.Named("overbooking"))
	policy.now = opts.Clock
	status := NewStatusCalculator(catalog, store, policy, opts.WaitlistMax)
	holds := &HoldRegistry{
		store:    store,
		notifier: opts.Notifier,
		log:      log.Named("holds"),
		now:      opts.Clock,
		newID:    opts.NewID,
		ttl:      opts.HoldTTL,
	}
	waitlist := &WaitlistQueue{
		store:    store,
		status:   status,
		holds:    holds,
		notifier: opts.Notifier,
		log:      log.Named("waitlist"),
		now:      opts.Clock,
		newID:    opts.NewID,
		offerTTL: opts.OfferTTL,
		max:      opts.WaitlistMax,
	}
	holds.promoter = waitlist

	return &Core{
		Policy:   policy,
		Status:   status,
		Holds:    holds,
		Waitlist: waitlist,
		Allocator: &SeatAllocator{
			store:    store,
			status:   status,
			holds:    holds,
			waitlist: waitlist,
			notifier: opts.Notifier,
			log:      log.Named("allocator"),
			now:      opts.Clock,
		},
		Sweeper: &ExpirationSweeper{
			store:    store,
			holds:    holds,
			waitlist: waitlist,
			log:      log.Named("sweeper"),
			now:      opts.Clock,
			batch:    opts.SweepBatch,
		},
		Forecaster: &DemandForecaster{
			catalog: catalog,
			policy:  policy,
			now:     opts.Clock,
		},
	}
}

// publish hands committed events to the notifier.  Failures are logged.
func publish(ctx context.Context, n Notifier, log *zap.Logger, events []model.Event) {
	for _, ev := range events {
		if err := n.Publish(ctx, ev); err != nil {
			log.Warn("event publish failed", zap.String("type", string(ev.Type)),
				zap.String("flight_id", ev.FlightID), zap.Error(err))
		}
	}
}

// checkCapacity rejects a transaction that raised held seats past
// capacity plus the configured buffer.
func checkCapacity(s model.InventoryStatus) error {
	if s.HeldSeats+s.SoldSeats > s.TotalSeats+s.OverbookingBuffer {
		return ErrConflict
	}
	return nil
}
