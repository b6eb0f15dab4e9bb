package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Roles a user can hold.  Role and IsActive together gate authorization.
const (
	RoleGuest       = "GUEST"
	RoleHostelOwner = "HOSTELOWNER"
	RoleAdmin       = "ADMIN"
)

// User represents a row of the `users` table.  PasswordHash is a bcrypt
// hash and is never serialized.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	FullName     – display name.
//	Email        – unique e-mail address, stored lower-cased.
//	Phone        – optional unique phone number; usable as a login name.
//	PasswordHash – bcrypt hash of the password.
//	Role         – GUEST, HOSTELOWNER or ADMIN.
//	Balance      – wallet balance in VND.
//	IsActive     – deactivated users cannot log in.
type User struct {
	ID           uint64          `json:"id"`
	FullName     string          `json:"fullName"`
	Email        string          `json:"email"`
	Phone        *string         `json:"phone,omitempty"`
	PasswordHash string          `json:"-"`
	Role         string          `json:"role"`
	Balance      decimal.Decimal `json:"balance"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	switch r {
	case RoleGuest, RoleHostelOwner, RoleAdmin:
		return true
	}
	return false
}
