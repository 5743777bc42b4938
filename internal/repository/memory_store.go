package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// MemoryStore is a process-local Store.  Each pool has its own mutex, so
// different pools never contend; a WithPool call stages its writes and
// applies them in one step on success.  It backs STORE_DRIVER=memory and
// the service tests.
type MemoryStore struct {
	mu      sync.RWMutex // guards pools, holds and entries
	pools   map[model.PoolKey]model.PoolState
	holds   map[string]model.SeatHold
	entries map[string]model.WaitlistEntry

	locksMu sync.Mutex
	locks   map[model.PoolKey]*sync.Mutex

	now func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pools:   make(map[model.PoolKey]model.PoolState),
		holds:   make(map[string]model.SeatHold),
		entries: make(map[string]model.WaitlistEntry),
		locks:   make(map[model.PoolKey]*sync.Mutex),
		now:     time.Now,
	}
}

func (s *MemoryStore) poolLock(key model.PoolKey) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// WithPool implements Store.
func (s *MemoryStore) WithPool(ctx context.Context, key model.PoolKey, fn func(tx PoolTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.poolLock(key)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	st, ok := s.pools[key]
	s.mu.RUnlock()
	if !ok {
		st = model.PoolState{Key: key}
	}
	tx := &memoryTx{
		store:   s,
		key:     key,
		state:   st,
		holds:   make(map[string]model.SeatHold),
		entries: make(map[string]model.WaitlistEntry),
	}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx.state.Version++
	tx.state.UpdatedAt = s.now().UTC()
	s.pools[key] = tx.state
	for id, h := range tx.holds {
		s.holds[id] = h
	}
	for id, e := range tx.entries {
		s.entries[id] = e
	}
	return nil
}

// PoolSnapshot implements Store.
func (s *MemoryStore) PoolSnapshot(ctx context.Context, key model.PoolKey) (model.PoolState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.pools[key]; ok {
		return st, nil
	}
	return model.PoolState{Key: key}, nil
}

// GetHold implements Store.
func (s *MemoryStore) GetHold(ctx context.Context, id string) (*model.SeatHold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holds[id]
	if !ok {
		return nil, fmt.Errorf("hold %s: %w", id, ErrNotFound)
	}
	return &h, nil
}

// GetWaitlistEntry implements Store.
func (s *MemoryStore) GetWaitlistEntry(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("waitlist entry %s: %w", id, ErrNotFound)
	}
	return &e, nil
}

// CountWaitingBefore implements Store.
func (s *MemoryStore) CountWaitingBefore(ctx context.Context, key model.PoolKey, priority int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if e.Pool == key && e.Status == model.WaitlistWaiting && e.Priority < priority {
			n++
		}
	}
	return n, nil
}

// OverdueHolds implements Store.
func (s *MemoryStore) OverdueHolds(ctx context.Context, now time.Time, limit int) ([]model.SeatHold, error) {
	s.mu.RLock()
	out := make([]model.SeatHold, 0)
	for _, h := range s.holds {
		if h.Status == model.HoldActive && !h.ExpiresAt.After(now) {
			out = append(out, h)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// OverdueOffers implements Store.
func (s *MemoryStore) OverdueOffers(ctx context.Context, now time.Time, limit int) ([]model.WaitlistEntry, error) {
	s.mu.RLock()
	out := make([]model.WaitlistEntry, 0)
	for _, e := range s.entries {
		if e.Status == model.WaitlistOffered && e.OfferExpiresAt != nil && !e.OfferExpiresAt.After(now) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].OfferExpiresAt.Before(*out[j].OfferExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memoryTx stages writes for one pool until WithPool commits them.
type memoryTx struct {
	store   *MemoryStore
	key     model.PoolKey
	state   model.PoolState
	holds   map[string]model.SeatHold
	entries map[string]model.WaitlistEntry
}

func (t *memoryTx) State() *model.PoolState { return &t.state }

func (t *memoryTx) InsertHold(ctx context.Context, h *model.SeatHold) error {
	if h.Pool != t.key {
		return fmt.Errorf("insert hold %s: pool mismatch", h.ID)
	}
	if _, err := t.LockHold(ctx, h.ID); err == nil {
		return fmt.Errorf("insert hold %s: %w", h.ID, ErrConflict)
	}
	t.holds[h.ID] = *h
	return nil
}

func (t *memoryTx) LockHold(ctx context.Context, id string) (*model.SeatHold, error) {
	if h, ok := t.holds[id]; ok {
		return &h, nil
	}
	t.store.mu.RLock()
	h, ok := t.store.holds[id]
	t.store.mu.RUnlock()
	if !ok || h.Pool != t.key {
		return nil, fmt.Errorf("hold %s: %w", id, ErrNotFound)
	}
	return &h, nil
}

func (t *memoryTx) UpdateHold(ctx context.Context, h *model.SeatHold) error {
	if _, err := t.LockHold(ctx, h.ID); err != nil {
		return err
	}
	t.holds[h.ID] = *h
	return nil
}

func (t *memoryTx) InsertWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error {
	if e.Pool != t.key {
		return fmt.Errorf("insert waitlist entry %s: pool mismatch", e.ID)
	}
	for _, other := range t.view() {
		if other.ID == e.ID || other.Priority == e.Priority {
			return fmt.Errorf("insert waitlist entry %s: %w", e.ID, ErrConflict)
		}
	}
	t.entries[e.ID] = *e
	return nil
}

func (t *memoryTx) LockWaitlistEntry(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	if e, ok := t.entries[id]; ok {
		return &e, nil
	}
	t.store.mu.RLock()
	e, ok := t.store.entries[id]
	t.store.mu.RUnlock()
	if !ok || e.Pool != t.key {
		return nil, fmt.Errorf("waitlist entry %s: %w", id, ErrNotFound)
	}
	return &e, nil
}

func (t *memoryTx) UpdateWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error {
	if _, err := t.LockWaitlistEntry(ctx, e.ID); err != nil {
		return err
	}
	t.entries[e.ID] = *e
	return nil
}

func (t *memoryTx) HeadWaiting(ctx context.Context) (*model.WaitlistEntry, error) {
	var head *model.WaitlistEntry
	for _, e := range t.view() {
		e := e // per-iteration copy; module targets go1.21 loop semantics
		if e.Status != model.WaitlistWaiting {
			continue
		}
		if head == nil || e.Priority < head.Priority {
			head = &e
		}
	}
	return head, nil
}

func (t *memoryTx) CountWaitingBefore(ctx context.Context, priority int64) (int, error) {
	n := 0
	for _, e := range t.view() {
		if e.Status == model.WaitlistWaiting && e.Priority < priority {
			n++
		}
	}
	return n, nil
}

// view merges committed entries of the pool with the staged ones.
func (t *memoryTx) view() map[string]model.WaitlistEntry {
	out := make(map[string]model.WaitlistEntry)
	t.store.mu.RLock()
	for id, e := range t.store.entries {
		if e.Pool == t.key {
			out[id] = e
		}
	}
	t.store.mu.RUnlock()
	for id, e := range t.entries {
		out[id] = e
	}
	return out
}
