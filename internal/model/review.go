package model

import "time"

// Review is a customer's rating of a room they stayed in.
type Review struct {
	ID         uint64    `json:"id"`
	RoomID     uint64    `json:"roomId"`
	CustomerID uint64    `json:"customerId"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
