package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/hostel-booking/internal/model"
	"github.com/iliyamo/hostel-booking/internal/queue"
	"github.com/iliyamo/hostel-booking/internal/repository"
)

var (
	// ErrBookingNotPayable means the booking is in a state that a payment
	// cannot confirm, e.g. CANCELLED.
	ErrBookingNotPayable = errors.New("booking cannot be paid")
	// ErrApplyFailed wraps storage failures after a transfer was matched.
	ErrApplyFailed = errors.New("payment matched but could not be applied")
	// ErrInvalidAmount is returned for a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Outcome is the result of a payment check.
type Outcome string

const (
	OutcomeNotPaid        Outcome = "NOT_PAID"
	OutcomeApplied        Outcome = "APPLIED"
	OutcomeAlreadyApplied Outcome = "ALREADY_APPLIED"
	OutcomeApplyFailed    Outcome = "APPLY_FAILED"
)

// QRRequest is what a client needs to show the QR code and later ask for
// confirmation.
type QRRequest struct {
	QRURL     string `json:"qrUrl"`
	BookingID uint64 `json:"bookingId"`
	Amount    int64  `json:"amount"`
	Code      int    `json:"code"`
}

// CheckResult reports a payment check.  Paid is true once a matching
// transfer was seen; Applied is true when the booking is CONFIRMED with
// the payment recorded.
type CheckResult struct {
	BookingID uint64  `json:"bookingId"`
	Paid      bool    `json:"paid"`
	Applied   bool    `json:"applied"`
	Outcome   Outcome `json:"outcome"`
	Message   string  `json:"message"`
	PaymentID uint64  `json:"paymentId,omitempty"`
}

// PaymentChecker is satisfied by *PaymentMatcher.
type PaymentChecker interface {
	CheckPayment(ctx context.Context, bookingID uint64, code int, amount int64) bool
}

// EventPublisher is satisfied by *queue.Publisher.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// PaymentWorkflow issues VietQR codes for bookings and confirms bookings
// once the ledger shows the transfer.
//
// A booking is confirmed by at most one call: the status flip is a
// conditional update (PENDING -> CONFIRMED) in the same transaction as the
// payment insert, and payments.idempotency_key is unique per booking and
// code.  A concurrent caller that loses the race sees ALREADY_APPLIED.
type PaymentWorkflow struct {
	db       *sql.DB
	access   *BookingAccess
	bookings *repository.BookingRepo
	payments *repository.PaymentRepo
	pending  *repository.PendingPaymentStore // nil disables strict codes
	qr       *QRGenerator
	matcher  PaymentChecker
	events   EventPublisher // may be nil
	log      *zap.Logger
	now      func() time.Time
}

// WorkflowDeps groups the collaborators of a PaymentWorkflow.
type WorkflowDeps struct {
	DB       *sql.DB
	Bookings *repository.BookingRepo
	Payments *repository.PaymentRepo
	Pending  *repository.PendingPaymentStore
	QR       *QRGenerator
	Matcher  PaymentChecker
	Events   EventPublisher
	Log      *zap.Logger
}

func NewPaymentWorkflow(d WorkflowDeps) *PaymentWorkflow {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentWorkflow{
		db:       d.DB,
		access:   NewBookingAccess(d.Bookings),
		bookings: d.Bookings,
		payments: d.Payments,
		pending:  d.Pending,
		qr:       d.QR,
		matcher:  d.Matcher,
		events:   d.Events,
		log:      log,
		now:      time.Now,
	}
}

// StrictCodes reports whether only server-issued codes are accepted.
func (w *PaymentWorkflow) StrictCodes() bool { return w.pending != nil }

// RequestQR issues a fresh code for a PENDING booking and returns the QR
// image URL.  A zero amount means the booking's total price.  The booking
// itself is not modified.
func (w *PaymentWorkflow) RequestQR(ctx context.Context, c Caller, bookingID uint64, amount decimal.Decimal) (QRRequest, error) {
	b, err := w.access.Booking(ctx, c, bookingID)
	if err != nil {
		return QRRequest{}, err
	}
	if b.Status != model.BookingPending {
		return QRRequest{}, fmt.Errorf("%w: status %s", ErrBookingNotPayable, b.Status)
	}
	if amount.IsZero() {
		amount = b.TotalPrice
	}
	whole := amount.IntPart()
	if whole <= 0 {
		return QRRequest{}, ErrInvalidAmount
	}

	code, err := RandomCode()
	if err != nil {
		return QRRequest{}, fmt.Errorf("generate code: %w", err)
	}
	if w.pending != nil {
		err := w.pending.Put(ctx, repository.PendingPayment{
			BookingID: bookingID, Code: code, Amount: whole, IssuedAt: w.now().UTC(),
		})
		if err != nil {
			w.log.Error("store pending code failed", zap.Uint64("booking_id", bookingID), zap.Error(err))
			return QRRequest{}, fmt.Errorf("store pending code: %w", err)
		}
	}
	return QRRequest{
		QRURL:     w.qr.BuildURL(amount, bookingID, code),
		BookingID: bookingID,
		Amount:    whole,
		Code:      code,
	}, nil
}

func idempotencyKey(bookingID uint64, code int) string {
	return fmt.Sprintf("%d:%d", bookingID, code)
}

// ConfirmAndApply asks the ledger whether the transfer for (bookingID,
// code, amount) arrived and, if so, confirms the booking and records the
// payment.  An error is returned only together with OutcomeApplyFailed
// or for access failures (not found, forbidden).
func (w *PaymentWorkflow) ConfirmAndApply(ctx context.Context, c Caller, bookingID uint64, code int, amount int64) (CheckResult, error) {
	res := CheckResult{BookingID: bookingID, Outcome: OutcomeNotPaid, Message: "payment not found yet"}
	if amount <= 0 {
		return res, ErrInvalidAmount
	}
	if _, err := w.access.Booking(ctx, c, bookingID); err != nil {
		return res, err
	}

	if w.pending != nil {
		p, ok, err := w.pending.Lookup(ctx, bookingID, code)
		if err != nil {
			w.log.Error("pending code lookup failed", zap.Uint64("booking_id", bookingID), zap.Error(err))
			res.Message = "payment check unavailable, retry later"
			return res, nil
		}
		if !ok {
			// the code may already have been settled and cleared
			if pay, err := w.payments.GetByIdempotencyKey(ctx, idempotencyKey(bookingID, code)); err == nil {
				return CheckResult{
					BookingID: bookingID, Paid: true, Applied: true, Outcome: OutcomeAlreadyApplied,
					Message: "payment already applied", PaymentID: pay.ID,
				}, nil
			}
			res.Message = "unknown or expired payment code"
			return res, nil
		}
		if p.Amount != amount {
			res.Message = "amount does not match the issued code"
			return res, nil
		}
	}

	if !w.matcher.CheckPayment(ctx, bookingID, code, amount) {
		return res, nil
	}
	return w.apply(ctx, bookingID, code, amount)
}

// apply runs the confirmation transaction for a matched transfer.
func (w *PaymentWorkflow) apply(ctx context.Context, bookingID uint64, code int, amount int64) (CheckResult, error) {
	failed := func(err error) (CheckResult, error) {
		w.log.Error("apply payment failed", zap.Uint64("booking_id", bookingID), zap.Int("code", code), zap.Error(err))
		return CheckResult{
			BookingID: bookingID, Paid: true, Outcome: OutcomeApplyFailed,
			Message: "payment received but booking could not be updated",
		}, err
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return failed(fmt.Errorf("%w: begin: %w", ErrApplyFailed, err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := w.now().UTC()
	flipped, err := w.bookings.ConfirmPendingTx(ctx, tx, bookingID, now)
	if err != nil {
		return failed(fmt.Errorf("%w: confirm: %w", ErrApplyFailed, err))
	}
	if !flipped {
		status, err := w.bookings.GetStatusTx(ctx, tx, bookingID)
		if err != nil {
			return failed(fmt.Errorf("%w: read status: %w", ErrApplyFailed, err))
		}
		if status == model.BookingConfirmed {
			return CheckResult{
				BookingID: bookingID, Paid: true, Applied: true, Outcome: OutcomeAlreadyApplied,
				Message: "payment already applied",
			}, nil
		}
		return failed(fmt.Errorf("%w: status %s", ErrBookingNotPayable, status))
	}

	key := idempotencyKey(bookingID, code)
	pay := &model.Payment{
		BookingID:      bookingID,
		Amount:         decimal.NewFromInt(amount),
		Method:         model.PaymentMethodVietQR,
		Note:           fmt.Sprintf("VietQR payment - code %d", code),
		Status:         model.PaymentSuccess,
		IdempotencyKey: &key,
		CreatedAt:      now,
	}
	if err := w.payments.CreateTx(ctx, tx, pay); err != nil {
		return failed(fmt.Errorf("%w: insert payment: %w", ErrApplyFailed, err))
	}
	if err := tx.Commit(); err != nil {
		return failed(fmt.Errorf("%w: commit: %w", ErrApplyFailed, err))
	}
	committed = true

	w.log.Info("booking confirmed by payment",
		zap.Uint64("booking_id", bookingID), zap.Uint64("payment_id", pay.ID), zap.Int64("amount", amount))
	w.afterConfirm(ctx, bookingID, code, amount, pay.ID, now)

	return CheckResult{
		BookingID: bookingID, Paid: true, Applied: true, Outcome: OutcomeApplied,
		Message: "payment confirmed", PaymentID: pay.ID,
	}, nil
}

// afterConfirm drops the pending codes and publishes the confirmation
// event.  Both are best effort; the booking is already committed.
func (w *PaymentWorkflow) afterConfirm(ctx context.Context, bookingID uint64, code int, amount int64, paymentID uint64, at time.Time) {
	if w.pending != nil {
		if err := w.pending.Clear(ctx, bookingID); err != nil {
			w.log.Warn("clear pending codes failed", zap.Uint64("booking_id", bookingID), zap.Error(err))
		}
	}
	if w.events == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:   bookingID,
		PaymentID:   paymentID,
		Amount:      amount,
		Code:        code,
		Method:      model.PaymentMethodVietQR,
		ConfirmedAt: at.Format(time.RFC3339),
	}
	if b, err := w.bookings.GetByID(ctx, bookingID); err == nil {
		ev.CustomerID, ev.RoomID = b.CustomerID, b.RoomID
	}
	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.events.PublishBookingConfirmed(pctx, ev); err != nil {
			w.log.Warn("publish booking.confirmed failed", zap.Uint64("booking_id", bookingID), zap.Error(err))
		}
	}()
}
