package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

// SeatAllocator is the entry point for seat requests.  Each call is one
// pool transaction: status is computed from the locked counters, then a
// hold and/or a waitlist entry is written.  Arrival order is the only
// ordering signal.
type SeatAllocator struct {
	store    repository.Store
	status   *StatusCalculator
	holds    *HoldRegistry
	waitlist *WaitlistQueue
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// GetStatus returns the current InventoryStatus of a pool.
func (a *SeatAllocator) GetStatus(ctx context.Context, key model.PoolKey) (model.InventoryStatus, error) {
	return a.status.Status(ctx, key)
}

// Allocate grants up to req.Seats seats.  Outcomes are reported in the
// result; only invalid input, an unknown pool or a store failure are
// returned as errors.
func (a *SeatAllocator) Allocate(ctx context.Context, req model.AllocationRequest) (model.AllocationResult, error) {
	if err := req.Pool.Validate(); err != nil {
		return model.AllocationResult{}, invalid("%v", err)
	}
	if req.Seats <= 0 {
		return model.AllocationResult{}, invalid("seats must be positive, got %d", req.Seats)
	}
	key := req.Pool
	ctx, span := tracer.Start(ctx, "SeatAllocator.Allocate", trace.WithAttributes(
		attribute.String("flight_id", key.FlightID),
		attribute.String("cabin", key.Cabin.String()),
		attribute.Int("seats", req.Seats)))
	defer span.End()

	var res model.AllocationResult
	var events []model.Event
	err := a.store.WithPool(ctx, key, func(tx repository.PoolTx) error {
		res, events = model.AllocationResult{}, nil
		before := tx.State().HeldSeats
		s, err := a.status.compute(ctx, key, *tx.State())
		if err != nil {
			return err
		}

		grant := min(req.Seats, s.EffectiveAvailable)
		if grant > 0 {
			hold, ev, err := a.holds.create(ctx, tx, key, grant, req.OwnerUserID, req.SessionID, "", a.holds.ttl)
			if err != nil {
				return err
			}
			events = append(events, ev)
			expires := hold.ExpiresAt.Format(time.RFC3339)
			res.Success = true
			res.HoldID = hold.ID
			res.SeatsAllocated = grant
			res.ExpiresAt = &expires
			res.Message = "seats held"
		}

		shortfall := req.Seats - grant
		switch {
		case shortfall == 0:
		case grant > 0 && a.waitlist.full(tx.State()):
			res.Message = fmt.Sprintf("partially allocated %d of %d seats; waitlist is full", grant, req.Seats)
		case grant == 0 && s.Status == model.StatusClosed:
			res.Message = "fully booked, waitlist closed"
		default:
			entry, pos, ev, err := a.waitlist.enqueue(ctx, tx, key, shortfall, req.OwnerUserID)
			if err != nil {
				return err
			}
			events = append(events, ev)
			res.WaitlistEntryID = entry.ID
			res.WaitlistPosition = &pos
			if grant > 0 {
				res.Message = fmt.Sprintf("partially allocated %d of %d seats; %d waitlisted", grant, req.Seats, shortfall)
			} else {
				res.Message = "no seats available; added to waitlist"
			}
		}

		if tx.State().HeldSeats > before {
			after, err := a.status.compute(ctx, key, *tx.State())
			if err != nil {
				return err
			}
			if err := checkCapacity(after); err != nil {
				return fmt.Errorf("allocate %d on %s: %w", grant, key, err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.AllocationResult{}, translate(err)
	}
	publish(ctx, a.notifier, a.log, events)

	span.SetAttributes(attribute.Int("seats_allocated", res.SeatsAllocated), attribute.Bool("waitlisted", res.WaitlistPosition != nil))
	a.log.Info("allocation",
		zap.String("flight_id", key.FlightID),
		zap.Stringer("cabin", key.Cabin),
		zap.String("owner_user_id", req.OwnerUserID),
		zap.Int("requested", req.Seats),
		zap.Int("allocated", res.SeatsAllocated),
		zap.String("hold_id", res.HoldID),
		zap.String("waitlist_entry_id", res.WaitlistEntryID))
	return res, nil
}

// Release forwards to HoldRegistry.Release.
func (a *SeatAllocator) Release(ctx context.Context, holdID string) error {
	return a.holds.Release(ctx, holdID)
}

// Convert forwards to HoldRegistry.Convert.
func (a *SeatAllocator) Convert(ctx context.Context, holdID, bookingID string) error {
	return a.holds.Convert(ctx, holdID, bookingID)
}
