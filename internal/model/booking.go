package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking statuses.  Status is the single source of truth for whether a
// room is reserved.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
	BookingCompleted = "COMPLETED"
)

// Booking records a customer's reservation of a room.  A booking is
// created PENDING and becomes CONFIRMED through the payment workflow or a
// manual status update by the owner or an admin.
//
// Fields:
//
//	ID         – primary key identifier.
//	RoomID     – room being rented.
//	CustomerID – GUEST user who made the booking.
//	StartDate  – first day of the stay.
//	EndDate    – last day of the stay, nil for open-ended rentals.
//	Status     – PENDING, CONFIRMED, CANCELLED or COMPLETED.
//	TotalPrice – amount due in VND.
type Booking struct {
	ID         uint64          `json:"id"`
	RoomID     uint64          `json:"roomId"`
	CustomerID uint64          `json:"customerId"`
	StartDate  time.Time       `json:"startDate"`
	EndDate    *time.Time      `json:"endDate,omitempty"`
	Status     string          `json:"status"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// CanTransition reports whether a manual status update from -> to is
// allowed.  PENDING -> CONFIRMED is also driven by the payment workflow.
func CanTransition(from, to string) bool {
	switch from {
	case BookingPending:
		return to == BookingConfirmed || to == BookingCancelled
	case BookingConfirmed:
		return to == BookingCompleted || to == BookingCancelled
	}
	return false
}
