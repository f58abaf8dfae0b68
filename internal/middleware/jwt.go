package middleware // middleware holds the echo middleware shared by the HTTP routes

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-reservation/internal/utils"
)

const claimsKey = "claims"

// JWTAuth accepts requests carrying a valid manager access token in the
// Authorization header and stores its claims for RequireRole and handlers.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok || raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// ClaimsFrom returns the claims stored by JWTAuth, or nil.
func ClaimsFrom(c echo.Context) *utils.Claims {
	claims, _ := c.Get(claimsKey).(*utils.Claims)
	return claims
}
