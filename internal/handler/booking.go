package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-booking/internal/model"
	"github.com/iliyamo/hostel-booking/internal/repository"
	"github.com/iliyamo/hostel-booking/internal/service"
)

const dateLayout = "2006-01-02"

// BookingHandler serves booking endpoints.  All methods assume BearerAuth
// has run; role checks beyond the route's RequireRole happen through
// BookingAccess.
type BookingHandler struct {
	Bookings *repository.BookingRepo
	Rooms    *repository.RoomRepo
	Access   *service.BookingAccess
}

func NewBookingHandler(bookings *repository.BookingRepo, rooms *repository.RoomRepo) *BookingHandler {
	return &BookingHandler{Bookings: bookings, Rooms: rooms, Access: service.NewBookingAccess(bookings)}
}

type createBookingReq struct {
	RoomID    uint64 `json:"roomId"`
	StartDate string `json:"startDate"` // YYYY-MM-DD
	EndDate   string `json:"endDate"`   // optional
}

type statusReq struct {
	Status string `json:"status"`
}

// Create handles POST /v1/bookings.  The booking starts PENDING and its
// total price is the room's monthly price times the number of started
// months.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.RoomID == 0 {
		return badRequest(c, "roomId required")
	}
	start, err := time.Parse(dateLayout, strings.TrimSpace(req.StartDate))
	if err != nil {
		return badRequest(c, "startDate must be YYYY-MM-DD")
	}
	var end *time.Time
	if s := strings.TrimSpace(req.EndDate); s != "" {
		e, err := time.Parse(dateLayout, s)
		if err != nil {
			return badRequest(c, "endDate must be YYYY-MM-DD")
		}
		if e.Before(start) {
			return badRequest(c, "endDate before startDate")
		}
		end = &e
	}

	ctx := c.Request().Context()
	room, err := h.Rooms.GetByID(ctx, req.RoomID)
	if err != nil {
		return fail(c, err)
	}
	b := &model.Booking{
		RoomID:     room.ID,
		CustomerID: uid,
		StartDate:  start,
		EndDate:    end,
		TotalPrice: repository.PriceFor(room.PricePerMonth, start, end),
	}
	if err := h.Bookings.Create(ctx, b); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Mine handles GET /v1/bookings for the authenticated guest.
func (h *BookingHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Bookings.ListByCustomer(c.Request().Context(), uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// OwnerList handles GET /v1/owner/bookings?status=.
func (h *BookingHandler) OwnerList(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Bookings.ListByOwner(c.Request().Context(), uid, strings.ToUpper(c.QueryParam("status")))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	b, err := h.Access.Booking(c.Request().Context(), who, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// UpdateStatus handles PATCH /v1/bookings/:id/status for owners and
// admins.  Only transitions allowed by model.CanTransition are accepted
// and a concurrent change answers 409.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	to := strings.ToUpper(strings.TrimSpace(req.Status))

	ctx := c.Request().Context()
	b, err := h.Access.Booking(ctx, who, id)
	if err != nil {
		return fail(c, err)
	}
	if !model.CanTransition(b.Status, to) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot change status from " + b.Status + " to " + to})
	}
	if err := h.Bookings.UpdateStatus(ctx, id, b.Status, to); err != nil {
		return fail(c, err)
	}
	b.Status = to
	return c.JSON(http.StatusOK, b)
}

// Cancel handles POST /v1/bookings/:id/cancel: a guest withdraws their
// own booking while it is still PENDING.
func (h *BookingHandler) Cancel(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx := c.Request().Context()
	b, err := h.Access.Booking(ctx, who, id)
	if err != nil {
		return fail(c, err)
	}
	if b.CustomerID != who.UserID {
		return fail(c, repository.ErrForbidden)
	}
	err = h.Bookings.UpdateStatus(ctx, id, model.BookingPending, model.BookingCancelled)
	if errors.Is(err, repository.ErrConflict) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "only pending bookings can be cancelled"})
	}
	if err != nil {
		return fail(c, err)
	}
	b.Status = model.BookingCancelled
	return c.JSON(http.StatusOK, b)
}
