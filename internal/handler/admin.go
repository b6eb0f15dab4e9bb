package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-booking/internal/model"
	"github.com/iliyamo/hostel-booking/internal/repository"
)

// AdminHandler groups the back-office endpoints.  Every route is behind
// RequireRole(ADMIN).
type AdminHandler struct {
	Users      *repository.UserRepo
	Hostels    *repository.HostelRepo
	Rooms      *repository.RoomRepo
	Bookings   *repository.BookingRepo
	Payments   *repository.PaymentRepo
	Reviews    *repository.ReviewRepo
	BcryptCost int
}

type statsResp struct {
	UsersByRole      map[string]int64 `json:"usersByRole"`
	Hostels          int64            `json:"hostels"`
	RoomsByStatus    map[string]int64 `json:"roomsByStatus"`
	BookingsByStatus map[string]int64 `json:"bookingsByStatus"`
	Reviews          int64            `json:"reviews"`
	Payments         int64            `json:"payments"`
	Revenue          string           `json:"revenue"`
}

// Stats handles GET /v1/admin/stats.
func (h *AdminHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		out statsResp
		err error
	)
	if out.UsersByRole, err = h.Users.CountByRole(ctx); err != nil {
		return fail(c, err)
	}
	if out.Hostels, err = h.Hostels.Count(ctx); err != nil {
		return fail(c, err)
	}
	if out.RoomsByStatus, err = h.Rooms.CountByStatus(ctx); err != nil {
		return fail(c, err)
	}
	if out.BookingsByStatus, err = h.Bookings.CountByStatus(ctx); err != nil {
		return fail(c, err)
	}
	if out.Reviews, err = h.Reviews.Count(ctx); err != nil {
		return fail(c, err)
	}
	n, revenue, err := h.Payments.SumSuccessful(ctx)
	if err != nil {
		return fail(c, err)
	}
	out.Payments, out.Revenue = n, revenue.StringFixed(2)
	return c.JSON(http.StatusOK, out)
}

// ListUsers handles GET /v1/admin/users?role=&limit=&offset=.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	role := strings.ToUpper(strings.TrimSpace(c.QueryParam("role")))
	if role != "" && !model.ValidRole(role) {
		return badRequest(c, "unknown role")
	}
	limit, offset := page(c)
	items, err := h.Users.List(c.Request().Context(), role, limit, offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetUser handles GET /v1/admin/users/:id.
func (h *AdminHandler) GetUser(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

type updateUserReq struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// UpdateUser handles PUT /v1/admin/users/:id.  It rewrites the profile
// fields and the role; email and password have their own flows.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.FullName) == "" {
		return badRequest(c, "fullName required")
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if !model.ValidRole(role) {
		return badRequest(c, "unknown role")
	}
	if self, err := getUserID(c); err == nil && self == id && role != model.RoleAdmin {
		return badRequest(c, "cannot change your own role")
	}
	ctx := c.Request().Context()
	if err := h.Users.UpdateProfile(ctx, id, req.FullName, req.Phone, role); err != nil {
		return fail(c, err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// SetActive returns a handler for POST /v1/admin/users/:id/activate and
// /deactivate.  An admin cannot deactivate their own account.
func (h *AdminHandler) SetActive(active bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := parseID(c, "id")
		if !ok {
			return badRequest(c, "invalid user id")
		}
		if self, err := getUserID(c); err == nil && self == id && !active {
			return badRequest(c, "cannot deactivate yourself")
		}
		if err := h.Users.SetActive(c.Request().Context(), id, active); err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id, "isActive": active})
	}
}

type resetPasswordReq struct {
	Password string `json:"password"`
}

// ResetPassword handles POST /v1/admin/users/:id/reset-password.
func (h *AdminHandler) ResetPassword(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if len(req.Password) < 6 {
		return badRequest(c, "password too short")
	}
	if err := h.Users.SetPassword(c.Request().Context(), id, req.Password, h.BcryptCost); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListHostels handles GET /v1/admin/hostels?ownerId=.
func (h *AdminHandler) ListHostels(c echo.Context) error {
	limit, offset := page(c)
	owner, _ := queryID(c, "ownerId")
	items, err := h.Hostels.List(c.Request().Context(), repository.HostelFilter{OwnerID: owner, Limit: limit, Offset: offset})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// DeleteHostel handles DELETE /v1/admin/hostels/:id.
func (h *AdminHandler) DeleteHostel(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid hostel id")
	}
	if err := h.Hostels.DeleteAny(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListBookings handles GET /v1/admin/bookings?status=.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	limit, offset := page(c)
	items, err := h.Bookings.ListAll(c.Request().Context(), strings.ToUpper(c.QueryParam("status")), limit, offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListReviews handles GET /v1/admin/reviews.
func (h *AdminHandler) ListReviews(c echo.Context) error {
	limit, offset := page(c)
	items, err := h.Reviews.List(c.Request().Context(), 0, limit, offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// DeleteReview handles DELETE /v1/admin/reviews/:id.
func (h *AdminHandler) DeleteReview(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid review id")
	}
	if err := h.Reviews.Delete(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
