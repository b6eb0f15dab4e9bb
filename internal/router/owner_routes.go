package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-booking/internal/handler"
	"github.com/iliyamo/hostel-booking/internal/middleware"
	"github.com/iliyamo/hostel-booking/internal/model"
)

// RegisterOwner registers the hostel management routes of HOSTELOWNER users.
func RegisterOwner(e *echo.Echo, h *handler.HostelHandler, b *handler.BookingHandler, auth echo.MiddlewareFunc) {
	g := e.Group("/v1/owner", auth, middleware.RequireRole(model.RoleHostelOwner))

	g.GET("/hostels", h.MyHostels)
	g.POST("/hostels", h.CreateHostel)
	g.PUT("/hostels/:id", h.UpdateHostel)
	g.PATCH("/hostels/:id", h.UpdateHostel)
	g.DELETE("/hostels/:id", h.DeleteHostel)

	g.POST("/hostels/:id/rooms", h.CreateRoom)
	g.PUT("/rooms/:id", h.UpdateRoom)
	g.PATCH("/rooms/:id", h.UpdateRoom)
	g.DELETE("/rooms/:id", h.DeleteRoom)

	g.GET("/bookings", b.OwnerList)
}

// RegisterAdmin registers the back-office routes.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, auth echo.MiddlewareFunc) {
	g := e.Group("/v1/admin", auth, middleware.RequireRole(model.RoleAdmin))

	g.GET("/stats", a.Stats)
	g.GET("/users", a.ListUsers)
	g.GET("/users/:id", a.GetUser)
	g.PUT("/users/:id", a.UpdateUser)
	g.POST("/users/:id/activate", a.SetActive(true))
	g.POST("/users/:id/deactivate", a.SetActive(false))
	g.POST("/users/:id/reset-password", a.ResetPassword)
	g.GET("/hostels", a.ListHostels)
	g.DELETE("/hostels/:id", a.DeleteHostel)
	g.GET("/bookings", a.ListBookings)
	g.GET("/reviews", a.ListReviews)
	g.DELETE("/reviews/:id", a.DeleteReview)
}
