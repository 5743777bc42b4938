package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

type SweeperSuite struct {
	suite.Suite
	f   *fixture
	ctx context.Context
}

func (s *SweeperSuite) SetupTest() {
	s.f = newFixture(s.T(), 10, 0, 0)
	s.ctx = context.Background()
}

func (s *SweeperSuite) TestExpiredHoldPromotesHead() {
	f := s.f
	held := f.allocate(s.T(), 10)
	queued := f.allocate(s.T(), 4)
	s.Require().NotNil(queued.WaitlistPosition)

	f.clock.Advance(30 * time.Minute)
	res, err := f.core.Sweeper.Sweep(s.ctx)

	s.Require().NoError(err)
	s.Equal(1, res.HoldsExpired)
	s.Equal(0, res.OffersExpired)
	s.Equal(model.HoldExpired, f.hold(s.T(), held.HoldID).Status)

	e := f.entry(s.T(), queued.WaitlistEntryID)
	s.Equal(model.WaitlistOffered, e.Status)
	s.Require().NotNil(e.OfferExpiresAt)
	s.Equal(f.clock.Now().Add(24*time.Hour), *e.OfferExpiresAt)
	offer := f.hold(s.T(), e.HoldID)
	s.Equal(model.HoldActive, offer.Status)
	s.Equal(4, offer.Seats)
	s.Equal(4, f.status(s.T()).HeldSeats)
}

func (s *SweeperSuite) TestSweepOnCleanStateIsNoop() {
	f := s.f
	live := f.allocate(s.T(), 2)

	for i := 0; i < 2; i++ {
		res, err := f.core.Sweeper.Sweep(s.ctx)
		s.Require().NoError(err)
		s.Equal(SweepResult{}, res)
	}
	s.Equal(model.HoldActive, f.hold(s.T(), live.HoldID).Status)
}

func (s *SweeperSuite) TestSweepTwiceExpiresOnce() {
	f := s.f
	f.allocate(s.T(), 3)
	f.clock.Advance(16 * time.Minute)

	first, err := f.core.Sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	second, err := f.core.Sweeper.Sweep(s.ctx)
	s.Require().NoError(err)

	s.Equal(1, first.HoldsExpired)
	s.Equal(SweepResult{}, second)
	s.Equal(0, f.status(s.T()).HeldSeats)
}

func (s *SweeperSuite) TestExpiredOfferIsRemoved() {
	f := s.f
	first := f.allocate(s.T(), 10)
	queued := f.allocate(s.T(), 10)
	next := f.allocate(s.T(), 10)
	s.Require().NoError(f.core.Holds.Release(s.ctx, first.HoldID))
	offered := f.entry(s.T(), queued.WaitlistEntryID)
	s.Require().Equal(model.WaitlistOffered, offered.Status)

	f.clock.Advance(25 * time.Hour)
	res, err := f.core.Sweeper.Sweep(s.ctx)

	s.Require().NoError(err)
	s.Equal(1, res.OffersExpired)
	s.Equal(model.WaitlistExpired, f.entry(s.T(), offered.ID).Status)
	s.Equal(model.HoldExpired, f.hold(s.T(), offered.HoldID).Status)
	s.Equal(model.WaitlistOffered, f.entry(s.T(), next.WaitlistEntryID).Status)
}

func (s *SweeperSuite) TestBatchesAreDrained() {
	f := s.f
	f.core.Sweeper.batch = 2
	for i := 0; i < 5; i++ {
		f.allocate(s.T(), 1)
	}
	f.clock.Advance(time.Hour)

	res, err := f.core.Sweeper.Sweep(s.ctx)

	s.Require().NoError(err)
	s.Equal(5, res.HoldsExpired)
	s.Equal(0, f.status(s.T()).HeldSeats)
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperSuite))
}

// brokenStore fails lookups of one hold id.
type brokenStore struct {
	*repository.MemoryStore
	bad string
}

func (b brokenStore) GetHold(ctx context.Context, id string) (*model.SeatHold, error) {
	if id == b.bad {
		return nil, fmt.Errorf("read hold %s: %w", id, repository.ErrUnavailable)
	}
	return b.MemoryStore.GetHold(ctx, id)
}

func TestSweepSkipsFailingRecords(t *testing.T) {
	f := newFixture(t, 10, 0, 0)
	bad := f.allocate(t, 2)
	good := f.allocate(t, 3)
	store := brokenStore{MemoryStore: f.store, bad: bad.HoldID}
	core := New(store, f.catalog, f.catalog, f.catalog, Options{Clock: f.clock.Now})
	f.clock.Advance(time.Hour)

	res, err := core.Sweeper.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.HoldsExpired)
	assert.Equal(t, 1, res.Failures)
	assert.Equal(t, model.HoldActive, f.hold(t, bad.HoldID).Status)
	assert.Equal(t, model.HoldExpired, f.hold(t, good.HoldID).Status)
	assert.Equal(t, 2, f.status(t).HeldSeats)
}

func TestSweepPagesPastFailingOldestHold(t *testing.T) {
	f := newFixture(t, 10, 0, 0)
	bad := f.allocate(t, 2)
	f.clock.Advance(time.Minute)
	good := f.allocate(t, 3)
	store := brokenStore{MemoryStore: f.store, bad: bad.HoldID}
	core := New(store, f.catalog, f.catalog, f.catalog, Options{Clock: f.clock.Now, SweepBatch: 1})
	f.clock.Advance(time.Hour)

	res, err := core.Sweeper.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.HoldsExpired)
	assert.Equal(t, 1, res.Failures)
	assert.Equal(t, model.HoldActive, f.hold(t, bad.HoldID).Status)
	assert.Equal(t, model.HoldExpired, f.hold(t, good.HoldID).Status)
	assert.Equal(t, 2, f.status(t).HeldSeats)
}

func TestSweepRacesWithAllocation(t *testing.T) {
	const n = 50
	f := newFixture(t, 20, 2, 0.1, func(o *Options) { o.WaitlistMax = 2 * n })
	ctx := context.Background()

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, 3*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			<-start
			res, err := f.core.Allocator.Allocate(ctx, model.AllocationRequest{
				Pool: f.key, Seats: 1 + i%3, OwnerUserID: fmt.Sprintf("user-%d", i), SessionID: "s",
			})
			if err != nil {
				errs <- err
				return
			}
			if i%2 == 0 && res.HoldID != "" {
				if err := f.core.Holds.Release(ctx, res.HoldID); err != nil {
					errs <- err
				}
			}
		}(i)
		go func() {
			defer wg.Done()
			<-start
			f.clock.Advance(2 * time.Minute)
			if _, err := f.core.Sweeper.Sweep(ctx); err != nil {
				errs <- err
			}
		}()
	}
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	st := f.status(t)
	assert.LessOrEqual(t, st.HeldSeats+st.SoldSeats, st.TotalSeats+st.OverbookingBuffer)

	active, err := f.store.OverdueHolds(ctx, f.clock.Now().Add(48*time.Hour), 0)
	require.NoError(t, err)
	held := 0
	for _, h := range active {
		held += h.Seats
	}
	assert.Equal(t, held, st.HeldSeats)
}
