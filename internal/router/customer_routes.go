package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-booking/internal/handler"
	"github.com/iliyamo/hostel-booking/internal/middleware"
	"github.com/iliyamo/hostel-booking/internal/model"
)

// RegisterBookings registers booking and review routes.  Creating,
// listing and cancelling bookings is for guests; reading a single booking
// is open to every role and BookingAccess decides visibility.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, r *handler.ReviewHandler, auth echo.MiddlewareFunc) {
	guest := middleware.RequireRole(model.RoleGuest)
	e.POST("/v1/bookings", b.Create, auth, guest)
	e.GET("/v1/bookings", b.Mine, auth, guest)
	e.POST("/v1/bookings/:id/cancel", b.Cancel, auth, guest)
	e.POST("/v1/rooms/:id/reviews", r.Create, auth, guest)

	anyRole := middleware.RequireRole(model.RoleGuest, model.RoleHostelOwner, model.RoleAdmin)
	e.GET("/v1/bookings/:id", b.Get, auth, anyRole)
	e.PATCH("/v1/bookings/:id/status", b.UpdateStatus, auth, middleware.RequireRole(model.RoleHostelOwner, model.RoleAdmin))
}

// RegisterPayments registers the VietQR payment routes.  The polling
// endpoint is rate limited since clients call it in a loop.
func RegisterPayments(e *echo.Echo, p *handler.PaymentHandler, auth, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/payments", auth, middleware.RequireRole(model.RoleGuest, model.RoleHostelOwner, model.RoleAdmin))
	g.GET("/qr", p.QR)
	g.GET("/check", p.Check, limit)
	g.GET("", p.List)
	g.GET("/:id", p.Get)
}
