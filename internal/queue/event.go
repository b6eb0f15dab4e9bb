// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background consumer.
package queue

// BookingConfirmedQueue is the durable queue that carries
// BookingConfirmedEvent messages.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published when a booking moves to CONFIRMED
// because a matching bank transfer was found.  It contains enough
// information for downstream consumers to log, notify, or trigger
// analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   uint64 `json:"booking_id"`
	CustomerID  uint64 `json:"customer_id"`
	RoomID      uint64 `json:"room_id"`
	PaymentID   uint64 `json:"payment_id"`
	Amount      int64  `json:"amount"`
	Code        int    `json:"code"`
	Method      string `json:"method"`
	ConfirmedAt string `json:"confirmed_at"`
}
