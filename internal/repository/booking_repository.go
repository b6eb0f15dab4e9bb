package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/hostel-booking/internal/model"
)

// BookingRepo provides access to the bookings table.  Status transitions
// are always written as conditional updates ("... WHERE status = ?") so two
// concurrent writers cannot both move the same booking.  All timestamps
// are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// ErrRoomUnavailable is returned by Create when the room is not AVAILABLE
// or already has an active booking overlapping the requested dates.
var ErrRoomUnavailable = errors.New("room unavailable")

const bookingCols = "b.id, b.room_id, b.customer_id, b.start_date, b.end_date, b.status, b.total_price, b.created_at, b.updated_at"

type rowScanner interface{ Scan(...any) error }

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b   model.Booking
		end sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.RoomID, &b.CustomerID, &b.StartDate, &end, &b.Status,
		&b.TotalPrice, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if end.Valid {
		t := end.Time
		b.EndDate = &t
	}
	return &b, nil
}

func collectBookings(rows *sql.Rows) ([]*model.Booking, error) {
	defer rows.Close()
	out := []*model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// overlaps reports whether [s1,e1] and [s2,e2] intersect.  A nil end is
// open-ended.
func overlaps(s1 time.Time, e1 *time.Time, s2 time.Time, e2 *time.Time) bool {
	if e1 != nil && e1.Before(s2) {
		return false
	}
	if e2 != nil && e2.Before(s1) {
		return false
	}
	return true
}

// Create inserts a PENDING booking after checking that the room is
// AVAILABLE and that no PENDING or CONFIRMED booking of the same room
// overlaps the requested period.  The transaction opens by touching the
// room row, which takes its write lock on MySQL and SQLite alike, so two
// creates for one room run their overlap scans one after the other.  On
// success b.ID, b.Status and the timestamps are populated.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		"UPDATE rooms SET updated_at = ? WHERE id = ? AND status = ?", now, b.RoomID, model.RoomAvailable)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var status string
		if err = tx.QueryRowContext(ctx, "SELECT status FROM rooms WHERE id = ?", b.RoomID).Scan(&status); err != nil {
			return notFound(err)
		}
		return ErrRoomUnavailable
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT start_date, end_date FROM bookings WHERE room_id = ? AND status IN ('PENDING','CONFIRMED')", b.RoomID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			s time.Time
			e sql.NullTime
		)
		if err = rows.Scan(&s, &e); err != nil {
			rows.Close()
			return err
		}
		var ep *time.Time
		if e.Valid {
			ep = &e.Time
		}
		if overlaps(b.StartDate, b.EndDate, s, ep) {
			rows.Close()
			return ErrRoomUnavailable
		}
	}
	if err = rows.Close(); err != nil {
		return err
	}

	var end any
	if b.EndDate != nil {
		end = *b.EndDate
	}
	res, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (room_id, customer_id, start_date, end_date, status, total_price, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.RoomID, b.CustomerID, b.StartDate, end, model.BookingPending, b.TotalPrice, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	b.ID = uint64(id)
	b.Status = model.BookingPending
	b.CreatedAt, b.UpdatedAt = now, now
	return nil
}

// GetByID fetches a booking.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, "SELECT "+bookingCols+" FROM bookings b WHERE b.id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// OwnerID returns the owner of the hostel that contains the booked room.
func (r *BookingRepo) OwnerID(ctx context.Context, bookingID uint64) (uint64, error) {
	var owner uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT h.owner_id FROM bookings b
		 JOIN rooms rm ON rm.id = b.room_id
		 JOIN hostels h ON h.id = rm.hostel_id
		 WHERE b.id = ?`, bookingID).Scan(&owner)
	return owner, notFound(err)
}

// ListByCustomer returns the bookings of a customer, newest first.
func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+bookingCols+" FROM bookings b WHERE b.customer_id = ? ORDER BY b.id DESC", customerID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ListByOwner returns bookings of rooms in hostels owned by ownerID,
// optionally filtered by status, newest first.
func (r *BookingRepo) ListByOwner(ctx context.Context, ownerID uint64, status string) ([]*model.Booking, error) {
	q := `SELECT ` + bookingCols + ` FROM bookings b
	      JOIN rooms rm ON rm.id = b.room_id
	      JOIN hostels h ON h.id = rm.hostel_id
	      WHERE h.owner_id = ?`
	args := []any{ownerID}
	if status != "" {
		q += " AND b.status = ?"
		args = append(args, status)
	}
	q += " ORDER BY b.id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ListAll returns every booking, optionally filtered by status.
func (r *BookingRepo) ListAll(ctx context.Context, status string, limit, offset int) ([]*model.Booking, error) {
	q := "SELECT " + bookingCols + " FROM bookings b"
	var args []any
	if status != "" {
		q += " WHERE b.status = ?"
		args = append(args, status)
	}
	q += " ORDER BY b.id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// UpdateStatus moves a booking from `from` to `to`.  It returns ErrConflict
// when the booking exists but is no longer in state `from`.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, from, to string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		to, time.Now().UTC(), id, from)
	if err != nil {
		return err
	}
	if err := requireOne(res); err != nil {
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return gerr
		}
		return ErrConflict
	}
	return nil
}

// ConfirmPendingTx flips a PENDING booking to CONFIRMED inside the caller's
// transaction.  It reports whether this call performed the transition;
// false means the booking is missing or not PENDING.
func (r *BookingRepo) ConfirmPendingTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE bookings SET status = 'CONFIRMED', updated_at = ? WHERE id = ? AND status = 'PENDING'",
		at.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetStatusTx reads the status of a booking inside the caller's transaction.
func (r *BookingRepo) GetStatusTx(ctx context.Context, tx *sql.Tx, id uint64) (string, error) {
	var s string
	err := tx.QueryRowContext(ctx, "SELECT status FROM bookings WHERE id = ?", id).Scan(&s)
	return s, notFound(err)
}

// HasConfirmedStay reports whether the customer has a CONFIRMED or
// COMPLETED booking for the room.
func (r *BookingRepo) HasConfirmedStay(ctx context.Context, customerID, roomID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE customer_id = ? AND room_id = ? AND status IN ('CONFIRMED','COMPLETED')",
		customerID, roomID).Scan(&n)
	return n > 0, err
}

// CountByStatus returns the number of bookings per status.
func (r *BookingRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM bookings GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var (
			s string
			n int64
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}

// PriceFor computes the total price of a stay: the monthly price times the
// number of started months between start and end, with a minimum of one
// month.  Open-ended stays are charged one month up front.
func PriceFor(monthly decimal.Decimal, start time.Time, end *time.Time) decimal.Decimal {
	months := 1
	if end != nil {
		y1, m1, d1 := start.Date()
		y2, m2, d2 := end.Date()
		months = (y2-y1)*12 + int(m2-m1)
		if d2 >= d1 {
			months++
		}
		if months < 1 {
			months = 1
		}
	}
	return monthly.Mul(decimal.NewFromInt(int64(months)))
}
