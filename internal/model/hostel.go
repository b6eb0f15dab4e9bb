package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Hostel is a building listed by a HOSTELOWNER.
type Hostel struct {
	ID          uint64    `json:"id"`
	OwnerID     uint64    `json:"ownerId"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Ward        string    `json:"ward,omitempty"`
	District    string    `json:"district,omitempty"`
	City        string    `json:"city,omitempty"`
	Description string    `json:"description,omitempty"`
	TotalFloors int       `json:"totalFloors"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Room statuses.
const (
	RoomAvailable   = "AVAILABLE"
	RoomOccupied    = "OCCUPIED"
	RoomMaintenance = "MAINTENANCE"
)

// Room is a rentable unit inside a hostel.  Prices are monthly, in VND.
type Room struct {
	ID            uint64          `json:"id"`
	HostelID      uint64          `json:"hostelId"`
	RoomNumber    string          `json:"roomNumber"`
	Floor         int             `json:"floor"`
	AreaM2        decimal.Decimal `json:"areaM2"`
	PricePerMonth decimal.Decimal `json:"pricePerMonth"`
	DepositAmount decimal.Decimal `json:"depositAmount"`
	MaxOccupants  int             `json:"maxOccupants"`
	Status        string          `json:"status"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}
