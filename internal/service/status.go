package service

import (
	"context"
	"math"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

// StatusCalculator derives InventoryStatus for a pool.  It never writes.
type StatusCalculator struct {
	catalog     repository.Catalog
	store       repository.Store
	policy      *OverbookingPolicy
	waitlistMax int
}

// NewStatusCalculator returns a calculator.  waitlistMax <= 0 means the
// waitlist never closes.
func NewStatusCalculator(catalog repository.Catalog, store repository.Store, policy *OverbookingPolicy, waitlistMax int) *StatusCalculator {
	return &StatusCalculator{catalog: catalog, store: store, policy: policy, waitlistMax: waitlistMax}
}

// Status returns the current view of key from committed state.
func (c *StatusCalculator) Status(ctx context.Context, key model.PoolKey) (model.InventoryStatus, error) {
	if err := key.Validate(); err != nil {
		return model.InventoryStatus{}, invalid("%v", err)
	}
	st, err := c.store.PoolSnapshot(ctx, key)
	if err != nil {
		return model.InventoryStatus{}, translate(err)
	}
	return c.compute(ctx, key, st)
}

// compute combines pool counters, possibly uncommitted ones inside a pool
// transaction, with catalog capacity and overbooking configuration.
func (c *StatusCalculator) compute(ctx context.Context, key model.PoolKey, st model.PoolState) (model.InventoryStatus, error) {
	capacity, err := c.catalog.Capacity(ctx, key)
	if err != nil {
		return model.InventoryStatus{}, translate(err)
	}
	cfg := c.policy.Config(ctx, key)
	return Derive(key, capacity, st, cfg, c.waitlistMax), nil
}

// Derive is the pure status function.
func Derive(key model.PoolKey, capacity model.Capacity, st model.PoolState, cfg model.OverbookingConfig, waitlistMax int) model.InventoryStatus {
	total, sold, held := capacity.TotalSeats, capacity.SoldSeats, st.HeldSeats
	buffer := Buffer(total, key.Cabin, cfg)
	limit := NetLimit(buffer, total, sold, held)
	available := max(0, total-sold-held)

	s := model.InventoryStatus{
		Pool:               key,
		TotalSeats:         total,
		SoldSeats:          sold,
		HeldSeats:          held,
		AvailableSeats:     available,
		OverbookingBuffer:  buffer,
		OverbookingLimit:   limit,
		EffectiveAvailable: max(0, available+limit),
		OccupancyRate:      occupancy(total, sold+held),
		WaitingCount:       st.WaitingCount,
	}
	s.Status = label(s, waitlistMax)
	return s
}

func occupancy(total, used int) float64 {
	if total <= 0 {
		if used > 0 {
			return 1
		}
		return 0
	}
	return math.Round(float64(used)/float64(total)*1e4) / 1e4
}

func label(s model.InventoryStatus, waitlistMax int) model.PoolStatus {
	if s.EffectiveAvailable == 0 {
		if waitlistMax <= 0 || s.WaitingCount < waitlistMax {
			return model.StatusWaitlistOnly
		}
		return model.StatusClosed
	}
	switch {
	case s.OccupancyRate >= model.WaitlistOnlyThreshold:
		return model.StatusWaitlistOnly
	case s.OccupancyRate >= model.LimitedThreshold:
		return model.StatusLimited
	}
	return model.StatusAvailable
}
