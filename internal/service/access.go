package service

import (
	"context"

	"github.com/iliyamo/hostel-booking/internal/model"
	"github.com/iliyamo/hostel-booking/internal/repository"
)

// Caller identifies the authenticated user behind a request.
type Caller struct {
	UserID uint64
	Role   string
}

// BookingAccess loads bookings on behalf of a caller.  Guests see their
// own bookings, owners see bookings of rooms in their hostels and admins
// see everything.
type BookingAccess struct {
	bookings *repository.BookingRepo
}

func NewBookingAccess(bookings *repository.BookingRepo) *BookingAccess {
	return &BookingAccess{bookings: bookings}
}

// Booking returns the booking if the caller may see it.  It returns
// repository.ErrNotFound or repository.ErrForbidden otherwise.
func (a *BookingAccess) Booking(ctx context.Context, c Caller, id uint64) (*model.Booking, error) {
	b, err := a.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch c.Role {
	case model.RoleAdmin:
		return b, nil
	case model.RoleGuest:
		if b.CustomerID == c.UserID {
			return b, nil
		}
	case model.RoleHostelOwner:
		owner, err := a.bookings.OwnerID(ctx, id)
		if err != nil {
			return nil, err
		}
		if owner == c.UserID {
			return b, nil
		}
	}
	return nil, repository.ErrForbidden
}
