package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-reservation/internal/handler"
	"github.com/iliyamo/hotel-room-reservation/internal/middleware"
	"github.com/iliyamo/hotel-room-reservation/internal/utils"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RoomsMiddleware holds the optional middleware applied to the room and
// booking routes.  A nil entry is skipped.
type RoomsMiddleware struct {
	Cache     echo.MiddlewareFunc // response cache for GET /v1/rooms
	RateLimit echo.MiddlewareFunc // token bucket for POST /v1/bookings
}

// RegisterBooking registers the room view, booking and ledger routes.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, mw RoomsMiddleware) {
	g := e.Group("/v1")
	g.GET("/rooms", h.ListRooms, optional(mw.Cache)...)
	g.POST("/bookings", h.RequestBooking, optional(mw.RateLimit)...)
	g.GET("/bookings", h.ListBookings)
	g.GET("/bookings/:id", h.GetBooking)
}

// RegisterAdmin registers inventory administration.  When jwtSecret is set
// the routes require a MANAGER access token; otherwise they are open, which
// suits local development.
func RegisterAdmin(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1/inventory")
	if jwtSecret != "" {
		g.Use(middleware.JWTAuth(jwtSecret))
		g.Use(middleware.RequireRole(utils.RoleManager))
	}
	g.POST("/reset", h.Reset)
	g.POST("/randomize", h.Randomize)
}

// RegisterStream registers the websocket room feed.
func RegisterStream(e *echo.Echo, s *handler.StreamHandler) {
	e.GET("/v1/rooms/ws", s.StreamRooms)
}

func optional(mw echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if mw == nil {
		return nil
	}
	return []echo.MiddlewareFunc{mw}
}
