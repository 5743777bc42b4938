package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.Event
}

func (n *recordingNotifier) Publish(_ context.Context, ev model.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) types() []model.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.EventType, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store   *repository.MemoryStore
	catalog *repository.MemoryCatalog
	clock   *fakeClock
	events  *recordingNotifier
	core    *Core
	key     model.PoolKey
}

// newFixture builds a core over one economy pool with the given seat
// counts.  rate is the economy overbooking rate of the default row.
func newFixture(t *testing.T, total, sold int, rate float64, tweak ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		store:   repository.NewMemoryStore(),
		catalog: repository.NewMemoryCatalog(),
		clock:   &fakeClock{now: t0},
		events:  &recordingNotifier{},
		key:     model.PoolKey{FlightID: "FL100", Cabin: model.CabinEconomy},
	}
	f.catalog.AddFlight(model.Flight{
		ID:            "FL100",
		FlightNumber:  "XY100",
		Origin:        "IKA",
		Destination:   "IST",
		DepartureAt:   t0.Add(30 * 24 * time.Hour),
		EconomySeats:  total,
		BusinessSeats: 20,
	})
	f.catalog.SetSold(f.key, sold)
	cfg := model.DefaultOverbookingConfig()
	cfg.EconomyRate = rate
	require.NoError(t, f.catalog.Save(context.Background(), cfg))

	var (
		idMu sync.Mutex
		seq  int
	)
	opts := Options{
		WaitlistMax: 50,
		Notifier:    f.events,
		Clock:       f.clock.Now,
		NewID: func() string {
			idMu.Lock()
			defer idMu.Unlock()
			seq++
			return fmt.Sprintf("id-%03d", seq)
		},
	}
	for _, fn := range tweak {
		fn(&opts)
	}
	f.core = New(f.store, f.catalog, f.catalog, f.catalog, opts)
	return f
}

func (f *fixture) allocate(t *testing.T, seats int) model.AllocationResult {
	t.Helper()
	res, err := f.core.Allocator.Allocate(context.Background(), model.AllocationRequest{
		Pool: f.key, Seats: seats, OwnerUserID: "user-1", SessionID: "sess-1",
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) status(t *testing.T) model.InventoryStatus {
	t.Helper()
	s, err := f.core.Status.Status(context.Background(), f.key)
	require.NoError(t, err)
	return s
}

func (f *fixture) hold(t *testing.T, id string) *model.SeatHold {
	t.Helper()
	h, err := f.store.GetHold(context.Background(), id)
	require.NoError(t, err)
	return h
}

func (f *fixture) entry(t *testing.T, id string) *model.WaitlistEntry {
	t.Helper()
	e, err := f.store.GetWaitlistEntry(context.Background(), id)
	require.NoError(t, err)
	return e
}
