package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

// SweepResult counts what one Sweep expired.
type SweepResult struct {
	HoldsExpired  int `json:"holds_expired"`
	OffersExpired int `json:"offers_expired"`
	Failures      int `json:"failures"`
}

// ExpirationSweeper expires overdue holds and waitlist offers and then
// re-runs promotion on every pool it freed seats in.  A failing record is
// logged and skipped.  Running it on a clean state changes nothing.
type ExpirationSweeper struct {
	store    repository.Store
	holds    *HoldRegistry
	waitlist *WaitlistQueue
	log      *zap.Logger
	now      func() time.Time
	batch    int
}

// Sweep runs one pass.  The error is non-nil only when the overdue lists
// could not be read at all.
func (s *ExpirationSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	ctx, span := tracer.Start(ctx, "ExpirationSweeper.Sweep")
	defer span.End()

	var res SweepResult
	now := s.now().UTC()
	touched := map[model.PoolKey]struct{}{}

	if err := s.sweepHolds(ctx, now, &res, touched); err != nil {
		span.RecordError(err)
		return res, translate(err)
	}
	for key := range touched {
		if _, err := s.waitlist.Promote(ctx, key); err != nil {
			res.Failures++
			s.log.Warn("promotion after sweep failed", zap.String("flight_id", key.FlightID),
				zap.Stringer("cabin", key.Cabin), zap.Error(err))
		}
	}
	if err := s.sweepOffers(ctx, now, &res); err != nil {
		span.RecordError(err)
		return res, translate(err)
	}

	span.SetAttributes(
		attribute.Int("holds_expired", res.HoldsExpired),
		attribute.Int("offers_expired", res.OffersExpired),
		attribute.Int("failures", res.Failures))
	if res.HoldsExpired > 0 || res.OffersExpired > 0 || res.Failures > 0 {
		s.log.Info("sweep finished", zap.Int("holds_expired", res.HoldsExpired),
			zap.Int("offers_expired", res.OffersExpired), zap.Int("failures", res.Failures))
	}
	return res, nil
}

// sweepHolds pages through overdue holds.  Ids that failed or were not
// expired stay overdue, so each page is widened by their count and they
// are skipped; older failures can not hide newer records from the sweep.
func (s *ExpirationSweeper) sweepHolds(ctx context.Context, now time.Time, res *SweepResult, touched map[model.PoolKey]struct{}) error {
	stuck := map[string]struct{}{}
	for {
		limit := s.batch + len(stuck)
		holds, err := s.store.OverdueHolds(ctx, now, limit)
		if err != nil {
			return err
		}
		fresh := 0
		for _, h := range holds {
			if _, ok := stuck[h.ID]; ok {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			fresh++
			expired, offerExpired, err := s.holds.Expire(ctx, h.ID)
			if err != nil {
				stuck[h.ID] = struct{}{}
				res.Failures++
				s.log.Warn("expire hold failed", zap.String("hold_id", h.ID),
					zap.String("flight_id", h.Pool.FlightID), zap.Error(err))
				continue
			}
			if !expired {
				stuck[h.ID] = struct{}{}
				continue
			}
			res.HoldsExpired++
			if offerExpired {
				res.OffersExpired++
			}
			touched[h.Pool] = struct{}{}
		}
		if len(holds) < limit || fresh == 0 {
			return nil
		}
	}
}

func (s *ExpirationSweeper) sweepOffers(ctx context.Context, now time.Time, res *SweepResult) error {
	stuck := map[string]struct{}{}
	for {
		limit := s.batch + len(stuck)
		entries, err := s.store.OverdueOffers(ctx, now, limit)
		if err != nil {
			return err
		}
		fresh := 0
		for _, e := range entries {
			if _, ok := stuck[e.ID]; ok {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			fresh++
			removed, err := s.waitlist.remove(ctx, e.ID, model.RemoveExpired)
			if err != nil {
				stuck[e.ID] = struct{}{}
				res.Failures++
				s.log.Warn("expire offer failed", zap.String("entry_id", e.ID),
					zap.String("flight_id", e.Pool.FlightID), zap.Error(err))
				continue
			}
			if !removed {
				stuck[e.ID] = struct{}{}
				continue
			}
			res.OffersExpired++
		}
		if len(entries) < limit || fresh == 0 {
			return nil
		}
	}
}
