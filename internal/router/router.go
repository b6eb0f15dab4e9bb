// Package router registers the HTTP routes of the API.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-booking/internal/handler"
	"github.com/iliyamo/hostel-booking/internal/middleware"
	"github.com/iliyamo/hostel-booking/internal/model"
)

// RegisterRoutes registers routes that do not belong to any API version.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers registration and login under /v1/auth, both
// behind the rate limiter, and the authenticated /v1/me profile route.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, auth, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	e.GET("/v1/me", a.Me, auth, middleware.RequireRole(model.RoleGuest, model.RoleHostelOwner, model.RoleAdmin))
}

// RegisterPublic registers the unauthenticated browse endpoints.  Their
// responses go through the shared response cache.
func RegisterPublic(e *echo.Echo, h *handler.HostelHandler, r *handler.ReviewHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/hostels", h.ListHostels, cache)
	e.GET("/v1/hostels/:id", h.GetHostel, cache)
	e.GET("/v1/hostels/:id/rooms", h.ListRooms, cache)
	e.GET("/v1/rooms", h.ListAllRooms, cache)
	e.GET("/v1/rooms/:id", h.GetRoom, cache)
	e.GET("/v1/rooms/:id/reviews", r.ListByRoom, cache)
}
