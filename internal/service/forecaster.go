package service

import (
	"context"
	"math"
	"time"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

// MaxForecastDays bounds a single Forecast call.
const MaxForecastDays = 365

// demandBand is one step of the days-to-departure function.
type demandBand struct {
	maxDays int
	factor  float64
	risk    model.RiskLevel
}

var demandBands = []demandBand{
	{maxDays: 3, factor: 0.95, risk: model.RiskHigh},
	{maxDays: 7, factor: 0.85, risk: model.RiskMedium},
	{maxDays: 14, factor: 0.70, risk: model.RiskMedium},
	{maxDays: math.MaxInt, factor: 0.50, risk: model.RiskLow},
}

func bandFor(days int) demandBand {
	for _, b := range demandBands {
		if days <= b.maxDays {
			return b
		}
	}
	return demandBands[len(demandBands)-1]
}

// DemandForecaster projects daily demand and no-shows up to departure.  It
// is a pure function of the clock and the flight; it never touches pool
// state.
type DemandForecaster struct {
	catalog repository.Catalog
	policy  *OverbookingPolicy
	now     func() time.Time
}

// Forecast returns one point per day for min(daysAhead, days until
// departure) days starting today.  A departed flight yields no points.
func (f *DemandForecaster) Forecast(ctx context.Context, flightID string, daysAhead int) ([]model.ForecastPoint, error) {
	if flightID == "" {
		return nil, invalid("flight id is required")
	}
	if daysAhead < 0 {
		return nil, invalid("days ahead must not be negative, got %d", daysAhead)
	}
	fl, err := f.catalog.Flight(ctx, flightID)
	if err != nil {
		return nil, translate(err)
	}
	rate := f.policy.noShowRate(ctx, *fl)
	limit := f.policy.Config(ctx, model.PoolKey{FlightID: flightID, Cabin: model.CabinEconomy}).MaxOverbooking
	return Project(*fl, f.now(), min(daysAhead, MaxForecastDays), rate, limit), nil
}

// Project is the deterministic core of Forecast.
func Project(fl model.Flight, now time.Time, daysAhead int, noShowRate float64, maxOverbooking int) []model.ForecastPoint {
	today := truncateDay(now.UTC())
	until := int(truncateDay(fl.DepartureAt.UTC()).Sub(today).Hours() / 24)
	n := min(daysAhead, until)
	if n <= 0 {
		return []model.ForecastPoint{}
	}
	seats := fl.EconomySeats + fl.BusinessSeats
	out := make([]model.ForecastPoint, 0, n)
	for i := 0; i < n; i++ {
		days := until - i
		band := bandFor(days)
		demand := floor(float64(seats) * band.factor)
		noShows := floor(float64(demand) * noShowRate)
		rec := max(0, min(floor(float64(noShows)*EconomyDampening), maxOverbooking))
		out = append(out, model.ForecastPoint{
			Date:                   today.AddDate(0, 0, i),
			DaysToDeparture:        days,
			PredictedDemand:        demand,
			RecommendedOverbooking: rec,
			ExpectedNoShows:        noShows,
			RiskLevel:              band.risk,
		})
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
