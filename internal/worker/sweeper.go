package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/flight-seat-inventory/internal/service"
)

// Sweeper is the part of service.ExpirationSweeper the worker drives.
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// Lease elects one sweeping instance.  A nil Lease means every instance
// sweeps, which is safe because sweeps are idempotent.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// SweeperWorker runs the expiration sweep on a fixed interval.
type SweeperWorker struct {
	sweeper  Sweeper
	lease    Lease
	logger   *zap.Logger
	interval time.Duration
}

// NewSweeperWorker creates the worker.  lease may be nil.
func NewSweeperWorker(sweeper Sweeper, lease Lease, logger *zap.Logger, interval time.Duration) *SweeperWorker {
	return &SweeperWorker{
		sweeper:  sweeper,
		lease:    lease,
		logger:   logger,
		interval: interval,
	}
}

// Start blocks until ctx is cancelled.
func (w *SweeperWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("sweeper worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sweeper worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *SweeperWorker) tick(ctx context.Context) {
	if w.lease != nil {
		ok, err := w.lease.Acquire(ctx)
		if err != nil {
			// Redis trouble should not stop expiry; sweep without the lease.
			w.logger.Warn("sweeper lease unavailable", zap.Error(err))
		} else if !ok {
			w.logger.Debug("sweeper lease held elsewhere, skipping tick")
			return
		} else {
			defer func() {
				if err := w.lease.Release(context.WithoutCancel(ctx)); err != nil {
					w.logger.Warn("sweeper lease release failed", zap.Error(err))
				}
			}()
		}
	}
	res, err := w.sweeper.Sweep(ctx)
	if err != nil {
		w.logger.Error("sweep failed", zap.Error(err))
		return
	}
	w.logger.Debug("sweep tick",
		zap.Int("holds_expired", res.HoldsExpired),
		zap.Int("offers_expired", res.OffersExpired),
		zap.Int("failures", res.Failures))
}
