package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// MemoryCatalog is a process-local Catalog, NoShowSource and
// OverbookingConfigStore.  It is seeded by the caller and used when
// STORE_DRIVER=memory and in tests.
type MemoryCatalog struct {
	mu      sync.RWMutex
	flights map[string]model.Flight
	sold    map[model.PoolKey]int
	noShows map[string]float64
	configs map[model.PoolKey]model.OverbookingConfig
}

// NewMemoryCatalog returns an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		flights: make(map[string]model.Flight),
		sold:    make(map[model.PoolKey]int),
		noShows: make(map[string]float64),
		configs: make(map[model.PoolKey]model.OverbookingConfig),
	}
}

// AddFlight registers or replaces a flight.
func (c *MemoryCatalog) AddFlight(f model.Flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flights[f.ID] = f
}

// SetSold sets the confirmed seat count of a pool.
func (c *MemoryCatalog) SetSold(key model.PoolKey, seats int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sold[key] = seats
}

// SetNoShowRate records a historical no-show rate for a route.
func (c *MemoryCatalog) SetNoShowRate(route string, rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.noShows[route] = rate
}

// Capacity implements Catalog.
func (c *MemoryCatalog) Capacity(ctx context.Context, key model.PoolKey) (model.Capacity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.flights[key.FlightID]
	if !ok {
		return model.Capacity{}, fmt.Errorf("flight %s: %w", key.FlightID, ErrNotFound)
	}
	return model.Capacity{TotalSeats: f.Seats(key.Cabin), SoldSeats: c.sold[key]}, nil
}

// Flight implements Catalog.
func (c *MemoryCatalog) Flight(ctx context.Context, flightID string) (*model.Flight, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.flights[flightID]
	if !ok {
		return nil, fmt.Errorf("flight %s: %w", flightID, ErrNotFound)
	}
	return &f, nil
}

// NoShowRate implements NoShowSource.
func (c *MemoryCatalog) NoShowRate(ctx context.Context, route string) (float64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.noShows[route]
	return r, ok, nil
}

// Lookup implements OverbookingConfigStore.
func (c *MemoryCatalog) Lookup(ctx context.Context, key model.PoolKey) (model.OverbookingConfig, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cfg, ok := c.configs[key]; ok {
		return cfg, true, nil
	}
	cfg, ok := c.configs[model.PoolKey{}]
	return cfg, ok, nil
}

// Save implements OverbookingConfigStore.
func (c *MemoryCatalog) Save(ctx context.Context, cfg model.OverbookingConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := model.PoolKey{FlightID: cfg.FlightID, Cabin: cfg.Cabin}
	if cfg.FlightID == "" {
		key = model.PoolKey{}
	}
	c.configs[key] = cfg
	return nil
}
