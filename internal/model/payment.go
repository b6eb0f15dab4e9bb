package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentMethodVietQR = "VIETQR"
	PaymentSuccess      = "SUCCESS"
)

// Payment is a money movement recorded against a booking.  Payments made
// through VietQR are only created as a side effect of a matched ledger
// transaction; IdempotencyKey ("{bookingId}:{code}") is unique so the same
// transfer can never be recorded twice.
type Payment struct {
	ID             uint64          `json:"id"`
	BookingID      uint64          `json:"bookingId"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"`
	Note           string          `json:"note,omitempty"`
	Status         string          `json:"status"`
	IdempotencyKey *string         `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
}
