package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

func TestForecastStopsAtDeparture(t *testing.T) {
	f := newFixture(t, 150, 0, 0.05)
	f.catalog.AddFlight(model.Flight{ID: "SOON", Origin: "IKA", Destination: "IST",
		DepartureAt: time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC), EconomySeats: 150, BusinessSeats: 20})

	points, err := f.core.Forecaster.Forecast(context.Background(), "SOON", 30)

	require.NoError(t, err)
	require.Len(t, points, 10)

	first := points[0]
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, 10, first.DaysToDeparture)
	assert.Equal(t, 119, first.PredictedDemand) // floor(170*0.70)
	assert.Equal(t, 9, first.ExpectedNoShows)   // floor(119*0.08)
	assert.Equal(t, 7, first.RecommendedOverbooking)
	assert.Equal(t, model.RiskMedium, first.RiskLevel)

	last := points[9]
	assert.Equal(t, 1, last.DaysToDeparture)
	assert.Equal(t, 161, last.PredictedDemand) // floor(170*0.95)
	assert.Equal(t, 12, last.ExpectedNoShows)
	assert.Equal(t, 9, last.RecommendedOverbooking)
	assert.Equal(t, model.RiskHigh, last.RiskLevel)

	assert.Equal(t, model.RiskMedium, points[4].RiskLevel) // 6 days out
}

func TestForecastIsRestartable(t *testing.T) {
	f := newFixture(t, 150, 0, 0.05)
	ctx := context.Background()

	a, err := f.core.Forecaster.Forecast(ctx, "FL100", 20)
	require.NoError(t, err)
	b, err := f.core.Forecaster.Forecast(ctx, "FL100", 20)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	require.Len(t, a, 20)
	assert.Equal(t, model.RiskLow, a[0].RiskLevel) // 30 days out
	assert.Equal(t, 0, f.status(t).HeldSeats)
}

func TestForecastEdgeCases(t *testing.T) {
	f := newFixture(t, 150, 0, 0.05)
	ctx := context.Background()
	f.catalog.AddFlight(model.Flight{ID: "GONE", DepartureAt: t0.Add(-time.Hour), EconomySeats: 10})

	points, err := f.core.Forecaster.Forecast(ctx, "GONE", 5)
	require.NoError(t, err)
	assert.Empty(t, points)

	points, err = f.core.Forecaster.Forecast(ctx, "FL100", 0)
	require.NoError(t, err)
	assert.Empty(t, points)

	_, err = f.core.Forecaster.Forecast(ctx, "FL100", -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.core.Forecaster.Forecast(ctx, "missing", 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBandBoundaries(t *testing.T) {
	assert.Equal(t, model.RiskHigh, bandFor(3).risk)
	assert.Equal(t, model.RiskMedium, bandFor(4).risk)
	assert.Equal(t, model.RiskMedium, bandFor(7).risk)
	assert.Equal(t, model.RiskMedium, bandFor(14).risk)
	assert.Equal(t, model.RiskLow, bandFor(15).risk)
}
