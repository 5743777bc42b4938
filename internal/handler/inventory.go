package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-inventory/internal/middleware"
	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/service"
)

// privilegedRoles may act on holds and waitlist entries of other users.
var privilegedRoles = map[string]bool{"ops": true, "admin": true}

// InventoryHandler exposes allocation, hold and waitlist operations to
// the booking front end.  Every route runs behind JWTAuth; the token
// subject is the owner of whatever the request creates.
type InventoryHandler struct {
	Core *service.Core
}

// NewInventoryHandler panics on a nil core.
func NewInventoryHandler(core *service.Core) *InventoryHandler {
	if core == nil {
		panic("nil core passed to NewInventoryHandler")
	}
	return &InventoryHandler{Core: core}
}

func poolKey(c echo.Context) (model.PoolKey, error) {
	cabin, err := model.ParseCabinClass(c.Param("cabin"))
	if err != nil {
		return model.PoolKey{}, err
	}
	key := model.PoolKey{FlightID: strings.TrimSpace(c.Param("flight")), Cabin: cabin}
	return key, key.Validate()
}

// owns reports whether the caller may see or change a record owned by
// owner.  Records of other users are reported as missing.
func owns(c echo.Context, owner string) bool {
	role, _ := c.Get(middleware.CtxRole).(string)
	return privilegedRoles[role] || middleware.UserID(c) == owner
}

func notFound(c echo.Context, what string) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
}

// Allocate handles POST /v1/pools/:flight/:cabin/allocations.  The body
// is {"seats": n, "session_id": "..."}.  It answers 201 when seats were
// held, 202 when the request was only waitlisted and 200 when nothing
// could be done (the message says why).
func (h *InventoryHandler) Allocate(c echo.Context) error {
	key, err := poolKey(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var body struct {
		Seats     int    `json:"seats"`
		SessionID string `json:"session_id"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Seats <= 0 {
		return badRequest(c, "seats must be a positive integer")
	}
	res, err := h.Core.Allocator.Allocate(c.Request().Context(), model.AllocationRequest{
		Pool:        key,
		Seats:       body.Seats,
		OwnerUserID: middleware.UserID(c),
		SessionID:   body.SessionID,
	})
	if err != nil {
		return fail(c, err)
	}
	code := http.StatusOK
	switch {
	case res.SeatsAllocated > 0:
		code = http.StatusCreated
	case res.WaitlistPosition != nil:
		code = http.StatusAccepted
	}
	return c.JSON(code, res)
}

// Status handles GET /v1/pools/:flight/:cabin/status.
func (h *InventoryHandler) Status(c echo.Context) error {
	key, err := poolKey(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	st, err := h.Core.Allocator.GetStatus(c.Request().Context(), key)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// GetHold handles GET /v1/holds/:id.
func (h *InventoryHandler) GetHold(c echo.Context) error {
	hold, err := h.Core.Holds.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if !owns(c, hold.OwnerUserID) {
		return notFound(c, "hold")
	}
	return c.JSON(http.StatusOK, hold)
}

// ReleaseHold handles DELETE /v1/holds/:id.  Releasing a hold that has
// already ended is not an error.
func (h *InventoryHandler) ReleaseHold(c echo.Context) error {
	ctx := c.Request().Context()
	hold, err := h.Core.Holds.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if !owns(c, hold.OwnerUserID) {
		return notFound(c, "hold")
	}
	if err := h.Core.Allocator.Release(ctx, hold.ID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type bookingBody struct {
	BookingID string `json:"booking_id"`
}

// ConvertHold handles POST /v1/holds/:id/convert with {"booking_id": ...}.
func (h *InventoryHandler) ConvertHold(c echo.Context) error {
	var body bookingBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(body.BookingID) == "" {
		return badRequest(c, "booking_id is required")
	}
	ctx := c.Request().Context()
	hold, err := h.Core.Holds.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if !owns(c, hold.OwnerUserID) {
		return notFound(c, "hold")
	}
	if err := h.Core.Allocator.Convert(ctx, hold.ID, body.BookingID); err != nil {
		return fail(c, err)
	}
	hold, err = h.Core.Holds.Get(ctx, hold.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, hold)
}

// GetWaitlistEntry handles GET /v1/waitlist/:id.  position is 0 once the
// entry has left the waiting state.
func (h *InventoryHandler) GetWaitlistEntry(c echo.Context) error {
	ctx := c.Request().Context()
	e, err := h.Core.Waitlist.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if !owns(c, e.OwnerUserID) {
		return notFound(c, "waitlist entry")
	}
	pos, err := h.Core.Waitlist.Position(ctx, e.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"entry": e, "position": pos})
}

// ConfirmWaitlistEntry handles POST /v1/waitlist/:id/confirm with
// {"booking_id": ...}.  Only an entry holding an open offer can confirm.
func (h *InventoryHandler) ConfirmWaitlistEntry(c echo.Context) error {
	var body bookingBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(body.BookingID) == "" {
		return badRequest(c, "booking_id is required")
	}
	ctx := c.Request().Context()
	e, err := h.Core.Waitlist.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if !owns(c, e.OwnerUserID) {
		return notFound(c, "waitlist entry")
	}
	if err := h.Core.Waitlist.Confirm(ctx, e.ID, body.BookingID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveWaitlistEntry handles DELETE /v1/waitlist/:id.  The entry is
// cancelled; an outstanding offer gives its seats back.
func (h *InventoryHandler) RemoveWaitlistEntry(c echo.Context) error {
	ctx := c.Request().Context()
	e, err := h.Core.Waitlist.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if !owns(c, e.OwnerUserID) {
		return notFound(c, "waitlist entry")
	}
	if err := h.Core.Waitlist.Remove(ctx, e.ID, model.RemoveCancelled); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
