// Package handler exposes the reservation service over HTTP.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health answers liveness probes.  It does not touch Redis, MySQL or the
// broker; those are optional and their loss never stops bookings.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
