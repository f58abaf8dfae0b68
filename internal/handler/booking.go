package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-room-reservation/internal/booking"
	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/repository"
)

// LedgerReader reads committed bookings back from the ledger.
type LedgerReader interface {
	ListRecent(ctx context.Context, limit int) ([]repository.BookingRecord, error)
	GetByBookingID(ctx context.Context, bookingID string) (*repository.BookingRecord, error)
}

// Booker is the booking service as seen by the HTTP layer.
type Booker interface {
	RequestBooking(ctx context.Context, count int) (booking.Result, error)
	Reset(ctx context.Context)
	Randomize(ctx context.Context)
	Rooms() []model.Room
}

// BookingHandler serves booking requests and inventory administration.
// Ledger may be nil when no database is configured.
type BookingHandler struct {
	Svc    Booker
	Ledger LedgerReader
	Logger *zap.Logger
}

// NewBookingHandler constructs a BookingHandler.  svc must be non-nil.
func NewBookingHandler(svc Booker, ledger LedgerReader, logger *zap.Logger) *BookingHandler {
	if svc == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingHandler{Svc: svc, Ledger: ledger, Logger: logger}
}

type bookingReq struct {
	Count json.RawMessage `json:"count"`
}

type bookingResp struct {
	Status string `json:"status"`
	booking.Result
}

type bookingErrResp struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// RequestBooking handles POST /v1/bookings.  The body is {"count": n} where
// n is an integer from 1 to 5, given as a number or a numeric string.
// Returns 201 with the booked rooms, 400 with reason invalid_count, or 409
// with reason not_enough_rooms.
func (h *BookingHandler) RequestBooking(c echo.Context) error {
	var req bookingReq
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, bookingErrResp{Status: "error", Reason: booking.ReasonInvalidCount})
	}
	count, err := booking.ParseCount(req.Count)
	if err != nil {
		return c.JSON(http.StatusBadRequest, bookingErrResp{Status: "error", Reason: booking.ReasonInvalidCount})
	}

	res, err := h.Svc.RequestBooking(c.Request().Context(), count)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidCount):
			return c.JSON(http.StatusBadRequest, bookingErrResp{Status: "error", Reason: booking.ReasonInvalidCount})
		case errors.Is(err, booking.ErrNotEnoughRooms):
			return c.JSON(http.StatusConflict, bookingErrResp{Status: "error", Reason: booking.ReasonNotEnoughRooms})
		}
		h.Logger.Error("booking failed", zap.Int("count", count), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, bookingErrResp{Status: "error", Reason: booking.ReasonInternalError})
	}
	return c.JSON(http.StatusCreated, bookingResp{Status: "booked", Result: res})
}

// ListBookings handles GET /v1/bookings.  It returns the most recent
// bookings from the ledger, newest first.  ?limit caps the result (1..200,
// default 50).
func (h *BookingHandler) ListBookings(c echo.Context) error {
	if h.Ledger == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "booking ledger disabled"})
	}
	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 200 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}
	items, err := h.Ledger.ListRecent(c.Request().Context(), limit)
	if err != nil {
		h.Logger.Error("list bookings failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetBooking handles GET /v1/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	if h.Ledger == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "booking ledger disabled"})
	}
	item, err := h.Ledger.GetByBookingID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		h.Logger.Error("get booking failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": item})
}

// Reset handles POST /v1/inventory/reset.
func (h *BookingHandler) Reset(c echo.Context) error {
	h.Svc.Reset(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

// Randomize handles POST /v1/inventory/randomize.
func (h *BookingHandler) Randomize(c echo.Context) error {
	h.Svc.Randomize(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}
