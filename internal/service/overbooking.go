package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

// Dampening applied to the raw no-show estimate when recommending a buffer.
const (
	EconomyDampening  = 0.8
	BusinessDampening = 0.5
)

// floor rounds down after absorbing float error, so that a rate stored
// as n/total floors back to n.
func floor(x float64) int { return int(math.Floor(x + 1e-9)) }

// OverbookingPolicy sizes overbooking buffers and recommends new ones from
// historical no-show data.
type OverbookingPolicy struct {
	catalog  repository.Catalog
	store    repository.Store
	configs  repository.OverbookingConfigStore
	noShows  repository.NoShowSource
	defaults model.OverbookingConfig
	log      *zap.Logger
	now      func() time.Time
}

// NewOverbookingPolicy returns a policy.  defaults apply when neither a
// pool row nor the default row is stored.
func NewOverbookingPolicy(catalog repository.Catalog, store repository.Store, configs repository.OverbookingConfigStore,
	noShows repository.NoShowSource, defaults model.OverbookingConfig, log *zap.Logger) *OverbookingPolicy {
	return &OverbookingPolicy{
		catalog:  catalog,
		store:    store,
		configs:  configs,
		noShows:  noShows,
		defaults: defaults,
		log:      log,
		now:      time.Now,
	}
}

// Buffer is floor(total × rate[cabin]) capped at cfg.MaxOverbooking.
func Buffer(total int, cabin model.CabinClass, cfg model.OverbookingConfig) int {
	if total <= 0 {
		return 0
	}
	b := floor(float64(total) * cfg.Rate(cabin))
	return max(0, min(b, cfg.MaxOverbooking))
}

// NetLimit is the part of buffer not yet consumed by seats sold or held
// beyond total.
func NetLimit(buffer, total, sold, held int) int {
	consumed := max(0, sold+held-total)
	return max(0, buffer-consumed)
}

// Config returns the effective configuration of a pool.  Lookup failures
// degrade to the defaults.
func (p *OverbookingPolicy) Config(ctx context.Context, key model.PoolKey) model.OverbookingConfig {
	cfg, ok, err := p.configs.Lookup(ctx, key)
	if err != nil {
		p.log.Warn("overbooking config lookup failed, using defaults",
			zap.String("flight_id", key.FlightID), zap.Stringer("cabin", key.Cabin), zap.Error(err))
		return p.defaults
	}
	if !ok {
		return p.defaults
	}
	return cfg
}

// Limit returns the remaining overbooking allowance of a pool.
func (p *OverbookingPolicy) Limit(ctx context.Context, key model.PoolKey) (int, error) {
	if err := key.Validate(); err != nil {
		return 0, invalid("%v", err)
	}
	capacity, err := p.catalog.Capacity(ctx, key)
	if err != nil {
		return 0, translate(err)
	}
	st, err := p.store.PoolSnapshot(ctx, key)
	if err != nil {
		return 0, translate(err)
	}
	buffer := Buffer(capacity.TotalSeats, key.Cabin, p.Config(ctx, key))
	return NetLimit(buffer, capacity.TotalSeats, capacity.SoldSeats, st.HeldSeats), nil
}

// Recommend proposes per-cabin buffers for a flight from the route's
// historical no-show rate.  Missing history falls back to the configured
// no-show rate.  Only an unknown flight is an error.
func (p *OverbookingPolicy) Recommend(ctx context.Context, flightID string) (model.Recommendation, error) {
	if flightID == "" {
		return model.Recommendation{}, invalid("flight id is required")
	}
	f, err := p.catalog.Flight(ctx, flightID)
	if err != nil {
		return model.Recommendation{}, translate(err)
	}
	rate := p.noShowRate(ctx, *f)
	eco := p.Config(ctx, model.PoolKey{FlightID: flightID, Cabin: model.CabinEconomy})
	bus := p.Config(ctx, model.PoolKey{FlightID: flightID, Cabin: model.CabinBusiness})
	return model.Recommendation{
		FlightID:   flightID,
		Route:      f.Route(),
		NoShowRate: rate,
		Economy:    recommended(f.EconomySeats, rate, EconomyDampening, eco.MaxOverbooking),
		Business:   recommended(f.BusinessSeats, rate, BusinessDampening, bus.MaxOverbooking/2),
	}, nil
}

func recommended(seats int, rate, dampening float64, limit int) int {
	n := floor(float64(seats) * rate * dampening)
	return max(0, min(n, limit))
}

func (p *OverbookingPolicy) noShowRate(ctx context.Context, f model.Flight) float64 {
	rate, ok, err := p.noShows.NoShowRate(ctx, f.Route())
	if err != nil {
		p.log.Warn("no-show history unavailable, using configured rate",
			zap.String("route", f.Route()), zap.Error(err))
	}
	if err == nil && ok && rate >= 0 && rate <= 1 {
		return rate
	}
	return p.Config(ctx, model.PoolKey{FlightID: f.ID, Cabin: model.CabinEconomy}).NoShowRate
}

// ApplyRecommendation stores Recommend's output as per-pool overbooking
// rows, so that Buffer reproduces the recommended seat counts.
func (p *OverbookingPolicy) ApplyRecommendation(ctx context.Context, flightID string) (model.Recommendation, error) {
	rec, err := p.Recommend(ctx, flightID)
	if err != nil {
		return rec, err
	}
	f, err := p.catalog.Flight(ctx, flightID)
	if err != nil {
		return rec, translate(err)
	}
	for _, cabin := range model.Cabins {
		key := model.PoolKey{FlightID: flightID, Cabin: cabin}
		cfg := p.Config(ctx, key)
		cfg.FlightID, cfg.Cabin = flightID, cabin
		cfg.NoShowRate = rec.NoShowRate
		cfg.UpdatedAt = p.now().UTC()
		seats, n := f.Seats(cabin), rec.Economy
		if cabin == model.CabinBusiness {
			n = rec.Business
		}
		rate := 0.0
		if seats > 0 {
			rate = float64(n) / float64(seats)
		}
		if cabin == model.CabinBusiness {
			cfg.BusinessRate = rate
		} else {
			cfg.EconomyRate = rate
		}
		if err := p.configs.Save(ctx, cfg); err != nil {
			return rec, fmt.Errorf("save overbooking config %s: %w", key, translate(err))
		}
	}
	p.log.Info("overbooking recommendation applied",
		zap.String("flight_id", flightID), zap.Int("economy", rec.Economy), zap.Int("business", rec.Business),
		zap.Float64("no_show_rate", rec.NoShowRate))
	return rec, nil
}
