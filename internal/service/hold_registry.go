package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

// Promoter re-runs waitlist promotion for a pool after capacity is freed.
type Promoter interface {
	Promote(ctx context.Context, key model.PoolKey) (int, error)
}

// HoldRegistry owns the seat hold lifecycle.  The held-seat counter lives
// on the pool record and is only changed in the same pool transaction as
// the hold row.
type HoldRegistry struct {
	store    repository.Store
	promoter Promoter
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
	ttl      time.Duration
}

// create inserts an active hold and charges the pool counter.  It must run
// inside tx.  entryID links the hold to a waitlist offer.
func (r *HoldRegistry) create(ctx context.Context, tx repository.PoolTx, key model.PoolKey, seats int,
	owner, session, entryID string, ttl time.Duration) (*model.SeatHold, model.Event, error) {
	now := r.now().UTC()
	h := &model.SeatHold{
		ID:              r.newID(),
		Pool:            key,
		Seats:           seats,
		OwnerUserID:     owner,
		SessionID:       session,
		WaitlistEntryID: entryID,
		Status:          model.HoldActive,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
		UpdatedAt:       now,
	}
	if err := tx.InsertHold(ctx, h); err != nil {
		return nil, model.Event{}, err
	}
	tx.State().HeldSeats += seats

	ev := model.NewEvent(model.EventHoldCreated, key, now)
	ev.HoldID, ev.OwnerUserID, ev.Seats = h.ID, owner, seats
	ev.WaitlistEntryID = entryID
	ev.ExpiresAt = h.ExpiresAt.Format(time.RFC3339)
	return h, ev, nil
}

// finish moves an active hold to a terminal status and returns its seats
// to the pool.
func (r *HoldRegistry) finish(ctx context.Context, tx repository.PoolTx, h *model.SeatHold, to model.HoldStatus, bookingID string) error {
	h.Status = to
	h.BookingID = bookingID
	h.UpdatedAt = r.now().UTC()
	if err := tx.UpdateHold(ctx, h); err != nil {
		return err
	}
	st := tx.State()
	st.HeldSeats -= h.Seats
	if st.HeldSeats < 0 {
		return fmt.Errorf("pool %s held seats would go negative: %w", h.Pool, ErrConflict)
	}
	return nil
}

func (r *HoldRegistry) holdEvent(t model.EventType, h *model.SeatHold) model.Event {
	ev := model.NewEvent(t, h.Pool, h.UpdatedAt)
	ev.HoldID, ev.OwnerUserID, ev.Seats = h.ID, h.OwnerUserID, h.Seats
	ev.WaitlistEntryID, ev.BookingID = h.WaitlistEntryID, h.BookingID
	return ev
}

// Get returns a hold by id.
func (r *HoldRegistry) Get(ctx context.Context, id string) (*model.SeatHold, error) {
	if id == "" {
		return nil, invalid("hold id is required")
	}
	h, err := r.store.GetHold(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return h, nil
}

// ActiveSeats reads the pool's authoritative held-seat counter.
func (r *HoldRegistry) ActiveSeats(ctx context.Context, key model.PoolKey) (int, error) {
	st, err := r.store.PoolSnapshot(ctx, key)
	if err != nil {
		return 0, translate(err)
	}
	return st.HeldSeats, nil
}

// transition runs fn against the locked hold inside its pool transaction
// and publishes the events fn returns once the transaction commits.
func (r *HoldRegistry) transition(ctx context.Context, id string,
	fn func(tx repository.PoolTx, h *model.SeatHold) ([]model.Event, error)) (*model.SeatHold, []model.Event, error) {
	h, err := r.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	var events []model.Event
	var locked *model.SeatHold
	err = r.store.WithPool(ctx, h.Pool, func(tx repository.PoolTx) error {
		locked, err = tx.LockHold(ctx, id)
		if err != nil {
			return err
		}
		events, err = fn(tx, locked)
		return err
	})
	if err != nil {
		return nil, nil, translate(err)
	}
	publish(ctx, r.notifier, r.log, events)
	return locked, events, nil
}

// settleOffer ends the waitlist entry an offer hold backs.
func (r *HoldRegistry) settleOffer(ctx context.Context, tx repository.PoolTx, h *model.SeatHold, to model.WaitlistStatus) (*model.Event, error) {
	if h.WaitlistEntryID == "" {
		return nil, nil
	}
	e, err := tx.LockWaitlistEntry(ctx, h.WaitlistEntryID)
	if err != nil {
		return nil, err
	}
	if e.Status != model.WaitlistOffered {
		return nil, nil
	}
	e.Status = to
	e.UpdatedAt = r.now().UTC()
	if err := tx.UpdateWaitlistEntry(ctx, e); err != nil {
		return nil, err
	}
	t := model.EventWaitlistRemoved
	if to == model.WaitlistConfirmed {
		t = model.EventWaitlistConfirmed
	}
	ev := model.NewEvent(t, e.Pool, e.UpdatedAt)
	ev.WaitlistEntryID, ev.HoldID, ev.OwnerUserID, ev.Seats = e.ID, h.ID, e.OwnerUserID, e.Seats
	ev.BookingID = h.BookingID
	ev.Reason = string(to)
	return &ev, nil
}

// Release cancels an active hold and re-runs promotion for its pool.  A
// hold that is already terminal is left untouched.  Releasing an offer
// hold cancels the offer.
func (r *HoldRegistry) Release(ctx context.Context, id string) error {
	h, events, err := r.transition(ctx, id, func(tx repository.PoolTx, h *model.SeatHold) ([]model.Event, error) {
		if h.Status.Terminal() {
			return nil, nil
		}
		if err := r.finish(ctx, tx, h, model.HoldReleased, ""); err != nil {
			return nil, err
		}
		events := []model.Event{r.holdEvent(model.EventHoldReleased, h)}
		ev, err := r.settleOffer(ctx, tx, h, model.WaitlistCancelled)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			events = append(events, *ev)
		}
		return events, nil
	})
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	r.log.Info("hold released", zap.String("hold_id", id), zap.String("flight_id", h.Pool.FlightID),
		zap.Stringer("cabin", h.Pool.Cabin), zap.Int("seats", h.Seats))
	r.promote(ctx, h.Pool)
	return nil
}

// Convert marks a hold as turned into bookingID.  Converting an already
// converted hold succeeds; any other non-active hold is a conflict.  An
// offer hold confirms its waitlist entry in the same transaction.
func (r *HoldRegistry) Convert(ctx context.Context, id, bookingID string) error {
	if bookingID == "" {
		return invalid("booking id is required")
	}
	h, events, err := r.transition(ctx, id, func(tx repository.PoolTx, h *model.SeatHold) ([]model.Event, error) {
		switch h.Status {
		case model.HoldConverted:
			return nil, nil
		case model.HoldActive:
		default:
			return nil, fmt.Errorf("hold %s is %s: %w", h.ID, h.Status, ErrConflict)
		}
		if err := r.finish(ctx, tx, h, model.HoldConverted, bookingID); err != nil {
			return nil, err
		}
		events := []model.Event{r.holdEvent(model.EventHoldConverted, h)}
		ev, err := r.settleOffer(ctx, tx, h, model.WaitlistConfirmed)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			events = append(events, *ev)
		}
		return events, nil
	})
	if err != nil {
		return err
	}
	if len(events) > 0 {
		r.log.Info("hold converted", zap.String("hold_id", id), zap.String("booking_id", bookingID),
			zap.String("flight_id", h.Pool.FlightID), zap.Stringer("cabin", h.Pool.Cabin))
	}
	return nil
}

// Expire moves an active hold to expired and returns its seats.  It does
// not promote; the sweeper does that once per pool.  offerExpired reports
// whether the hold backed a waitlist offer that expired with it.
func (r *HoldRegistry) Expire(ctx context.Context, id string) (expired, offerExpired bool, err error) {
	_, _, err = r.transition(ctx, id, func(tx repository.PoolTx, h *model.SeatHold) ([]model.Event, error) {
		if h.Status.Terminal() {
			return nil, nil
		}
		if err := r.finish(ctx, tx, h, model.HoldExpired, ""); err != nil {
			return nil, err
		}
		expired = true
		events := []model.Event{r.holdEvent(model.EventHoldExpired, h)}
		ev, err := r.settleOffer(ctx, tx, h, model.WaitlistExpired)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			offerExpired = true
			events = append(events, *ev)
		}
		return events, nil
	})
	if err != nil {
		return false, false, err
	}
	return expired, offerExpired, nil
}

func (r *HoldRegistry) promote(ctx context.Context, key model.PoolKey) {
	if r.promoter == nil {
		return
	}
	if _, err := r.promoter.Promote(ctx, key); err != nil {
		r.log.Warn("promotion after release failed", zap.String("flight_id", key.FlightID),
			zap.Stringer("cabin", key.Cabin), zap.Error(err))
	}
}
