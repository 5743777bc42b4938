package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

func TestBufferCapsAtMax(t *testing.T) {
	cfg := model.DefaultOverbookingConfig()

	assert.Equal(t, 5, Buffer(100, model.CabinEconomy, cfg))
	assert.Equal(t, 2, Buffer(100, model.CabinBusiness, cfg))
	assert.Equal(t, 10, Buffer(400, model.CabinEconomy, cfg))
	assert.Equal(t, 0, Buffer(0, model.CabinEconomy, cfg))
}

func TestLimitShrinksAsBufferIsUsed(t *testing.T) {
	f := newFixture(t, 100, 100, 0.05)
	ctx := context.Background()

	limit, err := f.core.Policy.Limit(ctx, f.key)
	require.NoError(t, err)
	assert.Equal(t, 5, limit)

	res := f.allocate(t, 3)
	require.True(t, res.Success)

	limit, err = f.core.Policy.Limit(ctx, f.key)
	require.NoError(t, err)
	assert.Equal(t, 2, limit)

	res = f.allocate(t, 5)
	assert.Equal(t, 2, res.SeatsAllocated)
	assert.NotNil(t, res.WaitlistPosition)

	s := f.status(t)
	assert.LessOrEqual(t, s.HeldSeats+s.SoldSeats, s.TotalSeats+s.OverbookingBuffer)
	assert.Equal(t, 0, s.EffectiveAvailable)
}

func TestRecommendUsesRouteHistory(t *testing.T) {
	f := newFixture(t, 150, 0, 0.05)
	f.catalog.SetNoShowRate("IKA-IST", 0.10)

	rec, err := f.core.Policy.Recommend(context.Background(), "FL100")

	require.NoError(t, err)
	assert.Equal(t, "IKA-IST", rec.Route)
	assert.InDelta(t, 0.10, rec.NoShowRate, 1e-9)
	assert.Equal(t, 10, rec.Economy) // floor(150*0.1*0.8)=12, capped at 10
	assert.Equal(t, 1, rec.Business) // floor(20*0.1*0.5)=1
}

func TestRecommendFallsBackToConfiguredRate(t *testing.T) {
	f := newFixture(t, 150, 0, 0.05)

	rec, err := f.core.Policy.Recommend(context.Background(), "FL100")

	require.NoError(t, err)
	assert.InDelta(t, model.DefaultNoShowRate, rec.NoShowRate, 1e-9)
	assert.Equal(t, 9, rec.Economy)
	assert.Equal(t, 0, rec.Business)
}

func TestRecommendBusinessCapIsHalved(t *testing.T) {
	f := newFixture(t, 150, 0, 0.05)
	f.catalog.AddFlight(model.Flight{ID: "BIG", Origin: "AAA", Destination: "BBB", DepartureAt: t0.AddDate(0, 1, 0),
		EconomySeats: 10, BusinessSeats: 400})
	f.catalog.SetNoShowRate("AAA-BBB", 0.2)

	rec, err := f.core.Policy.Recommend(context.Background(), "BIG")

	require.NoError(t, err)
	assert.Equal(t, 5, rec.Business)
}

func TestRecommendUnknownFlight(t *testing.T) {
	f := newFixture(t, 150, 0, 0.05)

	_, err := f.core.Policy.Recommend(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

type failingConfigs struct{}

func (failingConfigs) Lookup(context.Context, model.PoolKey) (model.OverbookingConfig, bool, error) {
	return model.OverbookingConfig{}, false, errors.New("boom")
}

func (failingConfigs) Save(context.Context, model.OverbookingConfig) error { return errors.New("boom") }

func TestConfigLookupFailureUsesDefaults(t *testing.T) {
	f := newFixture(t, 100, 90, 0.5)
	core := New(f.store, f.catalog, failingConfigs{}, f.catalog, Options{Clock: f.clock.Now})

	s, err := core.Status.Status(context.Background(), f.key)

	require.NoError(t, err)
	assert.Equal(t, 5, s.OverbookingLimit)
}

func TestApplyRecommendationStoresRates(t *testing.T) {
	f := newFixture(t, 150, 0, 0.05)
	f.catalog.SetNoShowRate("IKA-IST", 0.05)
	ctx := context.Background()

	rec, err := f.core.Policy.ApplyRecommendation(ctx, "FL100")
	require.NoError(t, err)
	assert.Equal(t, 6, rec.Economy) // floor(150*0.05*0.8)

	eco := f.core.Policy.Config(ctx, f.key)
	assert.Equal(t, "FL100", eco.FlightID)
	assert.Equal(t, rec.Economy, Buffer(150, model.CabinEconomy, eco))

	bus := f.core.Policy.Config(ctx, model.PoolKey{FlightID: "FL100", Cabin: model.CabinBusiness})
	assert.Equal(t, rec.Business, Buffer(20, model.CabinBusiness, bus))

	s := f.status(t)
	assert.Equal(t, 6, s.OverbookingLimit)
}
