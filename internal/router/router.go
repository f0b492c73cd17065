// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/rentiva/car-rental-backend/internal/handler"
	"github.com/rentiva/car-rental-backend/internal/middleware"
	"github.com/rentiva/car-rental-backend/internal/model"
)

// RegisterHealth registers the unauthenticated health probe.  Load balancers
// and monitoring systems hit this to verify the service and its database.
func RegisterHealth(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
}

// RegisterAuth registers the authentication and profile routes.
//
// The anonymous operations (register, login, refresh) sit behind the rate
// limiter so credential stuffing burns through a token bucket, not the
// database.  Session operations (logout, change-password) and the profile
// endpoints require a valid access token via authMW.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, u *handler.UserHandler,
	authMW, limitMW echo.MiddlewareFunc) {
	anon := e.Group("/v1/auth", limitMW)
	anon.POST("/register", a.Register)
	anon.POST("/login", a.Login)
	anon.POST("/refresh", a.Refresh)

	// Alias kept for clients using the conventional token path.
	e.POST("/v1/token/refresh", a.Refresh, limitMW)

	session := e.Group("/v1/auth", authMW)
	session.POST("/logout", a.Logout)
	session.POST("/change-password", a.ChangePassword)

	me := e.Group("/v1", authMW)
	me.GET("/me", u.Me)
	me.PUT("/me", u.UpdateMe)

	admin := e.Group("/v1/users", authMW, middleware.RequireRole(model.RoleAdmin))
	admin.PUT("/:id/role", u.ChangeRole)
	admin.DELETE("/:id", u.DeactivateUser)
}

// RegisterCars registers the car catalog.  Browsing is public and cached;
// fleet mutations require a staff or admin token and evict the catalog cache
// so edits show up immediately.
func RegisterCars(e *echo.Echo, h *handler.CarHandler, authMW, cacheMW, invalidateMW echo.MiddlewareFunc) {
	pub := e.Group("/v1/cars", cacheMW)
	pub.GET("", h.List)
	pub.GET("/:id", h.Get)

	fleet := e.Group("/v1/cars", authMW,
		middleware.RequireRole(model.RoleStaff, model.RoleAdmin), invalidateMW)
	fleet.POST("", h.Create)
	fleet.PUT("/:id", h.Update)
	fleet.DELETE("/:id", h.Delete)
}
