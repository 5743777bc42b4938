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

// WaitlistQueue keeps per-pool FIFO queues of requests that could not be
// granted.  Promotion is strictly head-of-line: a head entry that does
// not fit blocks every entry behind it.
type WaitlistQueue struct {
	store    repository.Store
	status   *StatusCalculator
	holds    *HoldRegistry
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
	offerTTL time.Duration
	max      int
}

// full reports whether the pool's waitlist is at capacity.
func (q *WaitlistQueue) full(st *model.PoolState) bool {
	return q.max > 0 && st.WaitingCount >= q.max
}

// enqueue appends an entry inside tx and returns it with its position.
func (q *WaitlistQueue) enqueue(ctx context.Context, tx repository.PoolTx, key model.PoolKey, seats int, owner string) (*model.WaitlistEntry, int, model.Event, error) {
	st := tx.State()
	if q.full(st) {
		return nil, 0, model.Event{}, fmt.Errorf("waitlist for %s is full: %w", key, ErrResourceExhausted)
	}
	now := q.now().UTC()
	st.NextPriority++
	e := &model.WaitlistEntry{
		ID:          q.newID(),
		Pool:        key,
		OwnerUserID: owner,
		Seats:       seats,
		Priority:    st.NextPriority,
		Status:      model.WaitlistWaiting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.InsertWaitlistEntry(ctx, e); err != nil {
		return nil, 0, model.Event{}, err
	}
	st.WaitingCount++
	ahead, err := tx.CountWaitingBefore(ctx, e.Priority)
	if err != nil {
		return nil, 0, model.Event{}, err
	}
	ev := model.NewEvent(model.EventWaitlistEnqueued, key, now)
	ev.WaitlistEntryID, ev.OwnerUserID, ev.Seats = e.ID, owner, seats
	return e, ahead + 1, ev, nil
}

// Enqueue adds a request for seats to the pool's waitlist.
func (q *WaitlistQueue) Enqueue(ctx context.Context, key model.PoolKey, seats int, owner string) (*model.WaitlistEntry, error) {
	if err := key.Validate(); err != nil {
		return nil, invalid("%v", err)
	}
	if seats <= 0 {
		return nil, invalid("seats must be positive, got %d", seats)
	}
	var entry *model.WaitlistEntry
	var ev model.Event
	err := q.store.WithPool(ctx, key, func(tx repository.PoolTx) error {
		var err error
		entry, _, ev, err = q.enqueue(ctx, tx, key, seats, owner)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	publish(ctx, q.notifier, q.log, []model.Event{ev})
	return entry, nil
}

// Promote offers seats to waiting entries of key in priority order until
// the head no longer fits.  It returns the number of offers made.
func (q *WaitlistQueue) Promote(ctx context.Context, key model.PoolKey) (int, error) {
	ctx, span := tracer.Start(ctx, "WaitlistQueue.Promote", trace.WithAttributes(
		attribute.String("flight_id", key.FlightID), attribute.String("cabin", key.Cabin.String())))
	defer span.End()

	var events []model.Event
	err := q.store.WithPool(ctx, key, func(tx repository.PoolTx) error {
		var err error
		events, err = q.promote(ctx, tx, key)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, translate(err)
	}
	publish(ctx, q.notifier, q.log, events)
	offers := len(events) / 2
	span.SetAttributes(attribute.Int("offers", offers))
	return offers, nil
}

// promote runs inside tx.  Each offer yields two events.
func (q *WaitlistQueue) promote(ctx context.Context, tx repository.PoolTx, key model.PoolKey) ([]model.Event, error) {
	var events []model.Event
	for {
		head, err := tx.HeadWaiting(ctx)
		if err != nil {
			return nil, err
		}
		if head == nil {
			return events, nil
		}
		s, err := q.status.compute(ctx, key, *tx.State())
		if err != nil {
			return nil, err
		}
		if s.EffectiveAvailable < head.Seats {
			q.log.Debug("waitlist head blocked", zap.String("entry_id", head.ID),
				zap.Int("seats", head.Seats), zap.Int("effective_available", s.EffectiveAvailable))
			return events, nil
		}

		hold, holdEv, err := q.holds.create(ctx, tx, key, head.Seats, head.OwnerUserID, "", head.ID, q.offerTTL)
		if err != nil {
			return nil, err
		}
		now := q.now().UTC()
		expires := hold.ExpiresAt
		head.Status = model.WaitlistOffered
		head.HoldID = hold.ID
		head.OfferedAt = &now
		head.OfferExpiresAt = &expires
		head.UpdatedAt = now
		if err := tx.UpdateWaitlistEntry(ctx, head); err != nil {
			return nil, err
		}
		tx.State().WaitingCount--

		after, err := q.status.compute(ctx, key, *tx.State())
		if err != nil {
			return nil, err
		}
		if err := checkCapacity(after); err != nil {
			return nil, fmt.Errorf("offer to %s on %s: %w", head.ID, key, err)
		}

		ev := model.NewEvent(model.EventWaitlistOffered, key, now)
		ev.WaitlistEntryID, ev.HoldID, ev.OwnerUserID, ev.Seats = head.ID, hold.ID, head.OwnerUserID, head.Seats
		ev.ExpiresAt = expires.Format(time.RFC3339)
		events = append(events, holdEv, ev)
		q.log.Info("waitlist offer created", zap.String("entry_id", head.ID), zap.String("hold_id", hold.ID),
			zap.String("flight_id", key.FlightID), zap.Stringer("cabin", key.Cabin), zap.Int("seats", head.Seats))
	}
}

// Get returns an entry by id.
func (q *WaitlistQueue) Get(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	if id == "" {
		return nil, invalid("waitlist entry id is required")
	}
	e, err := q.store.GetWaitlistEntry(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// Position is 1 plus the number of waiting entries ahead of id.  Entries
// that are no longer waiting have position 0.
func (q *WaitlistQueue) Position(ctx context.Context, id string) (int, error) {
	e, err := q.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if e.Status != model.WaitlistWaiting {
		return 0, nil
	}
	n, err := q.store.CountWaitingBefore(ctx, e.Pool, e.Priority)
	if err != nil {
		return 0, translate(err)
	}
	return n + 1, nil
}

// Confirm accepts an offer by converting its hold into bookingID.
// Confirming a confirmed entry succeeds; an entry that was never offered
// or whose offer ended is a conflict.
func (q *WaitlistQueue) Confirm(ctx context.Context, id, bookingID string) error {
	e, err := q.Get(ctx, id)
	if err != nil {
		return err
	}
	switch e.Status {
	case model.WaitlistConfirmed:
		return nil
	case model.WaitlistOffered:
	default:
		return fmt.Errorf("waitlist entry %s is %s: %w", e.ID, e.Status, ErrConflict)
	}
	return q.holds.Convert(ctx, e.HoldID, bookingID)
}

// Remove ends an entry with reason.  An offered entry gives up its hold
// in the same transaction.  Removing a terminal entry is a no-op.
// Promotion runs afterwards because the removed entry may have been the
// blocked head.  RemoveConfirmed is rejected: an offer is accepted with
// Confirm, which records the booking on the converted hold.
func (q *WaitlistQueue) Remove(ctx context.Context, id string, reason model.RemoveReason) error {
	_, err := q.remove(ctx, id, reason)
	return err
}

func (q *WaitlistQueue) remove(ctx context.Context, id string, reason model.RemoveReason) (bool, error) {
	to, err := reason.Status()
	if err != nil {
		return false, invalid("%v", err)
	}
	if to == model.WaitlistConfirmed {
		return false, invalid("waitlist entry %s: accept an offer with confirm and a booking id", id)
	}
	e, err := q.Get(ctx, id)
	if err != nil {
		return false, err
	}
	var events []model.Event
	err = q.store.WithPool(ctx, e.Pool, func(tx repository.PoolTx) error {
		locked, err := tx.LockWaitlistEntry(ctx, id)
		if err != nil {
			return err
		}
		if locked.Status.Terminal() {
			return nil
		}
		wasWaiting := locked.Status == model.WaitlistWaiting
		if !wasWaiting && locked.HoldID != "" {
			hold, err := tx.LockHold(ctx, locked.HoldID)
			if err != nil {
				return err
			}
			if hold.Status == model.HoldActive {
				holdTo, holdEv := model.HoldReleased, model.EventHoldReleased
				if to == model.WaitlistExpired {
					holdTo, holdEv = model.HoldExpired, model.EventHoldExpired
				}
				if err := q.holds.finish(ctx, tx, hold, holdTo, ""); err != nil {
					return err
				}
				events = append(events, q.holds.holdEvent(holdEv, hold))
			}
		}
		locked.Status = to
		locked.UpdatedAt = q.now().UTC()
		if err := tx.UpdateWaitlistEntry(ctx, locked); err != nil {
			return err
		}
		if wasWaiting {
			tx.State().WaitingCount--
		}
		ev := model.NewEvent(model.EventWaitlistRemoved, locked.Pool, locked.UpdatedAt)
		ev.WaitlistEntryID, ev.HoldID, ev.OwnerUserID, ev.Seats = locked.ID, locked.HoldID, locked.OwnerUserID, locked.Seats
		ev.Reason = string(reason)
		events = append(events, ev)
		return nil
	})
	if err != nil {
		return false, translate(err)
	}
	publish(ctx, q.notifier, q.log, events)
	if len(events) > 0 {
		q.log.Info("waitlist entry removed", zap.String("entry_id", id), zap.String("reason", string(reason)),
			zap.String("flight_id", e.Pool.FlightID), zap.Stringer("cabin", e.Pool.Cabin))
	}
	if _, err := q.Promote(ctx, e.Pool); err != nil {
		q.log.Warn("promotion after removal failed", zap.String("flight_id", e.Pool.FlightID),
			zap.Stringer("cabin", e.Pool.Cabin), zap.Error(err))
	}
	return len(events) > 0, nil
}
