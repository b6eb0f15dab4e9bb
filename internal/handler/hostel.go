package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hostel-booking/internal/model"
	"github.com/iliyamo/hostel-booking/internal/repository"
)

// HostelHandler serves hostel and room listings to everyone and lets
// HOSTELOWNER users manage their own hostels and rooms.
type HostelHandler struct {
	Hostels *repository.HostelRepo
	Rooms   *repository.RoomRepo
}

func NewHostelHandler(hostels *repository.HostelRepo, rooms *repository.RoomRepo) *HostelHandler {
	if hostels == nil || rooms == nil {
		panic("nil repository passed to NewHostelHandler")
	}
	return &HostelHandler{Hostels: hostels, Rooms: rooms}
}

type hostelReq struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Ward        string `json:"ward"`
	District    string `json:"district"`
	City        string `json:"city"`
	Description string `json:"description"`
	TotalFloors int    `json:"totalFloors"`
}

func (r hostelReq) validate() string {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Address) == "" {
		return "name and address required"
	}
	if r.TotalFloors < 0 {
		return "totalFloors must not be negative"
	}
	return ""
}

func (r hostelReq) apply(h *model.Hostel) {
	h.Name = strings.TrimSpace(r.Name)
	h.Address = strings.TrimSpace(r.Address)
	h.Ward = strings.TrimSpace(r.Ward)
	h.District = strings.TrimSpace(r.District)
	h.City = strings.TrimSpace(r.City)
	h.Description = r.Description
	h.TotalFloors = r.TotalFloors
	if h.TotalFloors == 0 {
		h.TotalFloors = 1
	}
}

type roomReq struct {
	RoomNumber    string          `json:"roomNumber"`
	Floor         int             `json:"floor"`
	AreaM2        decimal.Decimal `json:"areaM2"`
	PricePerMonth decimal.Decimal `json:"pricePerMonth"`
	DepositAmount decimal.Decimal `json:"depositAmount"`
	MaxOccupants  int             `json:"maxOccupants"`
	Status        string          `json:"status"`
	Description   string          `json:"description"`
}

func (r roomReq) validate() string {
	if strings.TrimSpace(r.RoomNumber) == "" {
		return "roomNumber required"
	}
	if !r.PricePerMonth.IsPositive() {
		return "pricePerMonth must be positive"
	}
	if r.DepositAmount.IsNegative() || r.AreaM2.IsNegative() {
		return "depositAmount and areaM2 must not be negative"
	}
	switch strings.ToUpper(r.Status) {
	case "", model.RoomAvailable, model.RoomOccupied, model.RoomMaintenance:
	default:
		return "invalid status"
	}
	return ""
}

func (r roomReq) apply(rm *model.Room) {
	rm.RoomNumber = strings.TrimSpace(r.RoomNumber)
	rm.Floor = r.Floor
	rm.AreaM2 = r.AreaM2
	rm.PricePerMonth = r.PricePerMonth
	rm.DepositAmount = r.DepositAmount
	rm.MaxOccupants = r.MaxOccupants
	if rm.MaxOccupants <= 0 {
		rm.MaxOccupants = 1
	}
	rm.Status = strings.ToUpper(r.Status)
	if rm.Status == "" {
		rm.Status = model.RoomAvailable
	}
	rm.Description = r.Description
}

// ListHostels handles GET /v1/hostels?city=&limit=&offset=.
func (h *HostelHandler) ListHostels(c echo.Context) error {
	limit, offset := page(c)
	items, err := h.Hostels.List(c.Request().Context(), repository.HostelFilter{
		City: strings.TrimSpace(c.QueryParam("city")), Limit: limit, Offset: offset,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetHostel handles GET /v1/hostels/:id.
func (h *HostelHandler) GetHostel(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid hostel id")
	}
	hs, err := h.Hostels.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, hs)
}

// ListRooms handles GET /v1/hostels/:id/rooms?status=.
func (h *HostelHandler) ListRooms(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid hostel id")
	}
	ctx := c.Request().Context()
	if _, err := h.Hostels.GetByID(ctx, id); err != nil {
		return fail(c, err)
	}
	items, err := h.Rooms.ListByHostel(ctx, id, strings.ToUpper(c.QueryParam("status")))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListAllRooms handles GET /v1/rooms?status=&limit=&offset=, the room
// browse across every hostel.
func (h *HostelHandler) ListAllRooms(c echo.Context) error {
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	switch status {
	case "", model.RoomAvailable, model.RoomOccupied, model.RoomMaintenance:
	default:
		return badRequest(c, "unknown room status")
	}
	limit, offset := page(c)
	items, err := h.Rooms.List(c.Request().Context(), status, limit, offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetRoom handles GET /v1/rooms/:id.
func (h *HostelHandler) GetRoom(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	rm, err := h.Rooms.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rm)
}

// ----- owner endpoints -----

// MyHostels handles GET /v1/owner/hostels.
func (h *HostelHandler) MyHostels(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	limit, offset := page(c)
	items, err := h.Hostels.List(c.Request().Context(), repository.HostelFilter{OwnerID: uid, Limit: limit, Offset: offset})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CreateHostel handles POST /v1/owner/hostels.
func (h *HostelHandler) CreateHostel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req hostelReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if msg := req.validate(); msg != "" {
		return badRequest(c, msg)
	}
	hs := &model.Hostel{OwnerID: uid}
	req.apply(hs)
	if err := h.Hostels.Create(c.Request().Context(), hs); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, hs)
}

// UpdateHostel handles PUT /v1/owner/hostels/:id.
func (h *HostelHandler) UpdateHostel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid hostel id")
	}
	var req hostelReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if msg := req.validate(); msg != "" {
		return badRequest(c, msg)
	}
	ctx := c.Request().Context()
	hs := &model.Hostel{ID: id, OwnerID: uid}
	req.apply(hs)
	if err := h.Hostels.Update(ctx, hs); err != nil {
		return fail(c, err)
	}
	out, err := h.Hostels.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// DeleteHostel handles DELETE /v1/owner/hostels/:id.  Hostels with active
// bookings answer 409.
func (h *HostelHandler) DeleteHostel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid hostel id")
	}
	if err := h.Hostels.Delete(c.Request().Context(), id, uid); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateRoom handles POST /v1/owner/hostels/:id/rooms.
func (h *HostelHandler) CreateRoom(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	hostelID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid hostel id")
	}
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if msg := req.validate(); msg != "" {
		return badRequest(c, msg)
	}
	rm := &model.Room{HostelID: hostelID}
	req.apply(rm)
	if err := h.Rooms.Create(c.Request().Context(), uid, rm); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, rm)
}

// UpdateRoom handles PUT /v1/owner/rooms/:id.
func (h *HostelHandler) UpdateRoom(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if msg := req.validate(); msg != "" {
		return badRequest(c, msg)
	}
	rm := &model.Room{ID: id}
	req.apply(rm)
	if err := h.Rooms.Update(c.Request().Context(), uid, rm); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rm)
}

// DeleteRoom handles DELETE /v1/owner/rooms/:id.
func (h *HostelHandler) DeleteRoom(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	if err := h.Rooms.Delete(c.Request().Context(), id, uid); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
