package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"errors"
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/rentiva/car-rental-backend/internal/auth"
)

// Context keys under which the authenticated identity is stored.  Handlers
// read these instead of re-parsing the token; there is no implicit global
// request user anywhere in the codebase.
const (
	CtxUserID   = "user_id"   // uint64
	CtxRole     = "role"      // string
	CtxJTI      = "jti"       // string
	CtxTokenExp = "token_exp" // time.Time
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's identity claims into the request context.  The
// issuer enforces signature, expiry (with skew leeway) and token type; the
// revoker rejects tokens whose jti was deny-listed by logout.  This
// middleware wraps every protected route.
func JWTAuth(issuer *auth.TokenIssuer, revoker auth.Revoker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := issuer.ParseAccess(raw)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			if revoker.IsRevoked(c.Request().Context(), claims.JTI) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token revoked"})
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxJTI, claims.JTI)
			c.Set(CtxTokenExp, claims.ExpiresAt)
			return next(c)
		}
	}
}
