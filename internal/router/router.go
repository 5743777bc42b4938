package router // package router wires handlers and middleware onto Echo

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-inventory/internal/handler"
	"github.com/iliyamo/flight-seat-inventory/internal/middleware"
)

// Deps are the handlers and middleware the routes need.  RateLimit and
// Cache may be nil.
type Deps struct {
	JWTSecret string
	Inventory *handler.InventoryHandler
	Planning  *handler.PlanningHandler
	Health    handler.Health
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// Register mounts every route.  /healthz is public; everything under /v1
// requires a bearer token, and the planning routes additionally require
// the ops or admin role.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Health.Check)

	v1 := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))
	RegisterInventory(v1, d.Inventory, d.RateLimit)
	RegisterPlanning(v1, d.Planning, d.Cache)
}

// RegisterInventory mounts the booking-facing routes.  The rate limit only
// guards allocation, the one route that creates state.
func RegisterInventory(g *echo.Group, h *handler.InventoryHandler, rateLimit echo.MiddlewareFunc) {
	var allocMW []echo.MiddlewareFunc
	if rateLimit != nil {
		allocMW = append(allocMW, rateLimit)
	}
	g.POST("/pools/:flight/:cabin/allocations", h.Allocate, allocMW...)
	g.GET("/pools/:flight/:cabin/status", h.Status)

	g.GET("/holds/:id", h.GetHold)
	g.DELETE("/holds/:id", h.ReleaseHold)
	g.POST("/holds/:id/convert", h.ConvertHold)

	g.GET("/waitlist/:id", h.GetWaitlistEntry)
	g.POST("/waitlist/:id/confirm", h.ConfirmWaitlistEntry)
	g.DELETE("/waitlist/:id", h.RemoveWaitlistEntry)
}

// RegisterPlanning mounts the ops/admin routes.  Forecasts are cached.
// The role gate is attached per route so unknown /v1 paths still 404.
func RegisterPlanning(g *echo.Group, h *handler.PlanningHandler, cache echo.MiddlewareFunc) {
	ops := middleware.RequireRole("ops", "admin")
	g.GET("/flights/:id/overbooking", h.Recommendation, ops)
	g.POST("/flights/:id/overbooking/apply", h.ApplyRecommendation, ops)

	forecastMW := []echo.MiddlewareFunc{ops}
	if cache != nil {
		forecastMW = append(forecastMW, cache)
	}
	g.GET("/flights/:id/forecast", h.Forecast, forecastMW...)
	g.POST("/sweeps", h.Sweep, ops)
}
