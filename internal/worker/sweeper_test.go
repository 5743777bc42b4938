package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/iliyamo/flight-seat-inventory/internal/service"
)

type countingSweeper struct{ calls atomic.Int32 }

func (s *countingSweeper) Sweep(context.Context) (service.SweepResult, error) {
	s.calls.Add(1)
	return service.SweepResult{HoldsExpired: 1}, nil
}

type fakeLease struct {
	granted  bool
	err      error
	released atomic.Int32
}

func (l *fakeLease) Acquire(context.Context) (bool, error) { return l.granted, l.err }

func (l *fakeLease) Release(context.Context) error {
	l.released.Add(1)
	return nil
}

func TestTickHonoursLease(t *testing.T) {
	ctx := context.Background()

	s := &countingSweeper{}
	held := &fakeLease{granted: false}
	NewSweeperWorker(s, held, zap.NewNop(), time.Minute).tick(ctx)
	assert.Equal(t, int32(0), s.calls.Load())

	owned := &fakeLease{granted: true}
	NewSweeperWorker(s, owned, zap.NewNop(), time.Minute).tick(ctx)
	assert.Equal(t, int32(1), s.calls.Load())
	assert.Equal(t, int32(1), owned.released.Load())

	broken := &fakeLease{err: errors.New("redis down")}
	NewSweeperWorker(s, broken, zap.NewNop(), time.Minute).tick(ctx)
	assert.Equal(t, int32(2), s.calls.Load())
	assert.Equal(t, int32(0), broken.released.Load())
}

func TestStartRunsUntilCancelled(t *testing.T) {
	s := &countingSweeper{}
	w := NewSweeperWorker(s, nil, zap.NewNop(), 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
