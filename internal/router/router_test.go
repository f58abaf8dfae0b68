package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-room-reservation/internal/booking"
	"github.com/iliyamo/hotel-room-reservation/internal/handler"
	"github.com/iliyamo/hotel-room-reservation/internal/inventory"
	"github.com/iliyamo/hotel-room-reservation/internal/utils"
)

func newEcho(secret string, mw RoomsMiddleware) *echo.Echo {
	svc := booking.NewService(inventory.New(), zap.NewNop())
	h := handler.NewBookingHandler(svc, nil, zap.NewNop())
	e := echo.New()
	RegisterRoutes(e)
	RegisterBooking(e, h, mw)
	RegisterAdmin(e, h, secret)
	return e
}

func call(e *echo.Echo, method, path, body, bearer string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRoutes_Public(t *testing.T) {
	e := newEcho("", RoomsMiddleware{})
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/healthz", "", ""))
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/rooms", "", ""))
	assert.Equal(t, http.StatusCreated, call(e, http.MethodPost, "/v1/bookings", `{"count":1}`, ""))
}

func TestRoutes_AdminOpenWithoutSecret(t *testing.T) {
	e := newEcho("", RoomsMiddleware{})
	assert.Equal(t, http.StatusNoContent, call(e, http.MethodPost, "/v1/inventory/reset", "", ""))
}

func TestRoutes_AdminRequiresManager(t *testing.T) {
	const secret = "test-secret"
	e := newEcho(secret, RoomsMiddleware{})

	assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodPost, "/v1/inventory/reset", "", ""))

	guest, err := utils.NewAccessToken(secret, "guest", "GUEST", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call(e, http.MethodPost, "/v1/inventory/reset", "", guest.Token))

	mgr, err := utils.NewAccessToken(secret, "desk", utils.RoleManager, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, call(e, http.MethodPost, "/v1/inventory/reset", "", mgr.Token))
	assert.Equal(t, http.StatusNoContent, call(e, http.MethodPost, "/v1/inventory/randomize", "", mgr.Token))
}

func TestRoutes_OptionalMiddlewareApplied(t *testing.T) {
	deny := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error { return c.NoContent(http.StatusTooManyRequests) }
	}
	e := newEcho("", RoomsMiddleware{RateLimit: deny})
	assert.Equal(t, http.StatusTooManyRequests, call(e, http.MethodPost, "/v1/bookings", `{"count":1}`, ""))
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/rooms", "", ""))
}
