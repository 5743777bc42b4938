package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-inventory/internal/service"
)

// DefaultForecastDays is used when ?days is absent.
const DefaultForecastDays = 30

// PlanningHandler serves the revenue-management and operations routes.
// They are mounted behind RequireRole("ops", "admin").
type PlanningHandler struct {
	Core *service.Core
}

func NewPlanningHandler(core *service.Core) *PlanningHandler {
	if core == nil {
		panic("nil core passed to NewPlanningHandler")
	}
	return &PlanningHandler{Core: core}
}

// Recommendation handles GET /v1/flights/:id/overbooking.
func (h *PlanningHandler) Recommendation(c echo.Context) error {
	rec, err := h.Core.Policy.Recommend(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// ApplyRecommendation handles POST /v1/flights/:id/overbooking/apply and
// returns the values that were written.
func (h *PlanningHandler) ApplyRecommendation(c echo.Context) error {
	rec, err := h.Core.Policy.ApplyRecommendation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// Forecast handles GET /v1/flights/:id/forecast?days=N.
func (h *PlanningHandler) Forecast(c echo.Context) error {
	days := DefaultForecastDays
	if s := c.QueryParam("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return badRequest(c, "days must be an integer")
		}
		days = n
	}
	points, err := h.Core.Forecaster.Forecast(c.Request().Context(), c.Param("id"), days)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"flight_id": c.Param("id"), "days": len(points), "points": points})
}

// Sweep handles POST /v1/sweeps, an on-demand run of the expiry sweeper.
func (h *PlanningHandler) Sweep(c echo.Context) error {
	res, err := h.Core.Sweeper.Sweep(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
