package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hostel-booking/internal/repository"
	"github.com/iliyamo/hostel-booking/internal/service"
)

// PaymentHandler exposes the VietQR payment flow: issuing a QR code for a
// booking and polling the bank ledger for the matching transfer.
type PaymentHandler struct {
	Workflow *service.PaymentWorkflow
	Payments *repository.PaymentRepo
	Access   *service.BookingAccess
}

func NewPaymentHandler(w *service.PaymentWorkflow, payments *repository.PaymentRepo, bookings *repository.BookingRepo) *PaymentHandler {
	return &PaymentHandler{Workflow: w, Payments: payments, Access: service.NewBookingAccess(bookings)}
}

type checkResp struct {
	Paid      bool            `json:"paid"`
	Applied   bool            `json:"applied"`
	BookingID uint64          `json:"bookingId"`
	Outcome   service.Outcome `json:"outcome"`
	Message   string          `json:"message"`
	PaymentID uint64          `json:"paymentId,omitempty"`
}

// QR handles GET /v1/payments/qr?bookingId=&amount=.  amount is optional
// and defaults to the booking's total price.
func (h *PaymentHandler) QR(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return unauthorized(c)
	}
	bookingID, ok := queryID(c, "bookingId")
	if !ok {
		return badRequest(c, "bookingId required")
	}
	amount := decimal.Zero
	if s := strings.TrimSpace(c.QueryParam("amount")); s != "" {
		amount, err = decimal.NewFromString(s)
		if err != nil || !amount.IsPositive() {
			return badRequest(c, "amount must be a positive number")
		}
	}
	qr, err := h.Workflow.RequestQR(c.Request().Context(), who, bookingID, amount)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, qr)
}

// Check handles GET /v1/payments/check?bookingId=&code=&amount=.  The
// client polls it after showing the QR code.  A matched transfer that
// could not be applied is reported with paid=true and applied=false and
// a 409 or 500 status, never as a plain success.
func (h *PaymentHandler) Check(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return unauthorized(c)
	}
	bookingID, ok := queryID(c, "bookingId")
	if !ok {
		return badRequest(c, "bookingId required")
	}
	code, err := strconv.Atoi(c.QueryParam("code"))
	if err != nil || code < 100000 || code > 999999 {
		return badRequest(c, "code must be a six digit number")
	}
	amount, err := strconv.ParseInt(c.QueryParam("amount"), 10, 64)
	if err != nil || amount <= 0 {
		return badRequest(c, "amount must be a positive integer")
	}

	res, err := h.Workflow.ConfirmAndApply(c.Request().Context(), who, bookingID, code, amount)
	body := checkResp{
		Paid: res.Paid, Applied: res.Applied, BookingID: bookingID,
		Outcome: res.Outcome, Message: res.Message, PaymentID: res.PaymentID,
	}
	if err != nil && res.Outcome == service.OutcomeApplyFailed {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrBookingNotPayable) {
			status = http.StatusConflict
		}
		return c.JSON(status, body)
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, body)
}

// List handles GET /v1/payments?bookingId=.
func (h *PaymentHandler) List(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return unauthorized(c)
	}
	bookingID, ok := queryID(c, "bookingId")
	if !ok {
		return badRequest(c, "bookingId required")
	}
	ctx := c.Request().Context()
	if _, err := h.Access.Booking(ctx, who, bookingID); err != nil {
		return fail(c, err)
	}
	items, err := h.Payments.ListByBooking(ctx, bookingID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/payments/:id.  Visibility follows the booking.
func (h *PaymentHandler) Get(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid payment id")
	}
	ctx := c.Request().Context()
	p, err := h.Payments.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if _, err := h.Access.Booking(ctx, who, p.BookingID); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
