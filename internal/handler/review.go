package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-booking/internal/model"
	"github.com/iliyamo/hostel-booking/internal/repository"
)

// ReviewHandler lets guests rate rooms they stayed in.
type ReviewHandler struct {
	Reviews  *repository.ReviewRepo
	Rooms    *repository.RoomRepo
	Bookings *repository.BookingRepo
}

func NewReviewHandler(reviews *repository.ReviewRepo, rooms *repository.RoomRepo, bookings *repository.BookingRepo) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews, Rooms: rooms, Bookings: bookings}
}

type reviewReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Create handles POST /v1/rooms/:id/reviews.  Only guests with a
// confirmed or completed booking of the room may review it.
func (h *ReviewHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	roomID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return badRequest(c, "rating must be between 1 and 5")
	}

	ctx := c.Request().Context()
	if _, err := h.Rooms.GetByID(ctx, roomID); err != nil {
		return fail(c, err)
	}
	stayed, err := h.Bookings.HasConfirmedStay(ctx, uid, roomID)
	if err != nil {
		return fail(c, err)
	}
	if !stayed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only guests with a confirmed booking can review this room"})
	}
	rv := &model.Review{RoomID: roomID, CustomerID: uid, Rating: req.Rating, Comment: strings.TrimSpace(req.Comment)}
	if err := h.Reviews.Create(ctx, rv); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, rv)
}

// ListByRoom handles GET /v1/rooms/:id/reviews.
func (h *ReviewHandler) ListByRoom(c echo.Context) error {
	roomID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	limit, offset := page(c)
	items, err := h.Reviews.List(c.Request().Context(), roomID, limit, offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
