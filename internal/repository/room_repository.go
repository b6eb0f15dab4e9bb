package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hostel-booking/internal/model"
)

// RoomRepo provides CRUD operations for rooms.  Ownership is checked
// through the parent hostel: write methods join rooms to hostels and
// compare hostels.owner_id with the caller.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo returns a new RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

const roomCols = "id, hostel_id, room_number, floor, area_m2, price_per_month, deposit_amount, max_occupants, status, description, created_at, updated_at"

func scanRoom(row rowScanner) (*model.Room, error) {
	var (
		rm   model.Room
		desc sql.NullString
	)
	if err := row.Scan(&rm.ID, &rm.HostelID, &rm.RoomNumber, &rm.Floor, &rm.AreaM2, &rm.PricePerMonth,
		&rm.DepositAmount, &rm.MaxOccupants, &rm.Status, &desc, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		return nil, err
	}
	rm.Description = desc.String
	return &rm, nil
}

// hostelOwner returns the owner of a hostel, or ErrNotFound.
func (r *RoomRepo) hostelOwner(ctx context.Context, hostelID uint64) (uint64, error) {
	var owner uint64
	err := r.db.QueryRowContext(ctx, "SELECT owner_id FROM hostels WHERE id = ?", hostelID).Scan(&owner)
	return owner, notFound(err)
}

// Create inserts a room into a hostel owned by ownerID.  A duplicate room
// number within the same hostel yields ErrConflict.
func (r *RoomRepo) Create(ctx context.Context, ownerID uint64, rm *model.Room) error {
	owner, err := r.hostelOwner(ctx, rm.HostelID)
	if err != nil {
		return err
	}
	if owner != ownerID {
		return ErrForbidden
	}
	if rm.Status == "" {
		rm.Status = model.RoomAvailable
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (hostel_id, room_number, floor, area_m2, price_per_month, deposit_amount, max_occupants, status, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rm.HostelID, rm.RoomNumber, rm.Floor, rm.AreaM2, rm.PricePerMonth, rm.DepositAmount,
		rm.MaxOccupants, rm.Status, rm.Description, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rm.ID = uint64(id)
	rm.CreatedAt, rm.UpdatedAt = now, now
	return nil
}

// GetByID fetches a room.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	rm, err := scanRoom(r.db.QueryRowContext(ctx, "SELECT "+roomCols+" FROM rooms WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return rm, nil
}

// ListByHostel returns the rooms of a hostel ordered by floor and number.
// An empty status lists every room.
func (r *RoomRepo) ListByHostel(ctx context.Context, hostelID uint64, status string) ([]*model.Room, error) {
	q := "SELECT " + roomCols + " FROM rooms WHERE hostel_id = ?"
	args := []any{hostelID}
	if status != "" {
		q += " AND status = ?"
		args = append(args, status)
	}
	q += " ORDER BY floor, room_number"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

// List pages through rooms across every hostel, optionally filtered by
// status.
func (r *RoomRepo) List(ctx context.Context, status string, limit, offset int) ([]*model.Room, error) {
	q := "SELECT " + roomCols + " FROM rooms"
	args := []any{}
	if status != "" {
		q += " WHERE status = ?"
		args = append(args, status)
	}
	q += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

// ownedRoom loads a room and checks that ownerID owns its hostel.
func (r *RoomRepo) ownedRoom(ctx context.Context, id, ownerID uint64) (*model.Room, error) {
	rm, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := r.hostelOwner(ctx, rm.HostelID)
	if err != nil {
		return nil, err
	}
	if owner != ownerID {
		return nil, ErrForbidden
	}
	return rm, nil
}

// Update overwrites the editable fields of a room.  The hostel of a room
// cannot change.
func (r *RoomRepo) Update(ctx context.Context, ownerID uint64, rm *model.Room) error {
	cur, err := r.ownedRoom(ctx, rm.ID, ownerID)
	if err != nil {
		return err
	}
	rm.HostelID = cur.HostelID
	rm.CreatedAt = cur.CreatedAt
	rm.UpdatedAt = time.Now().UTC()
	_, err = r.db.ExecContext(ctx,
		`UPDATE rooms SET room_number = ?, floor = ?, area_m2 = ?, price_per_month = ?, deposit_amount = ?,
		 max_occupants = ?, status = ?, description = ?, updated_at = ? WHERE id = ?`,
		rm.RoomNumber, rm.Floor, rm.AreaM2, rm.PricePerMonth, rm.DepositAmount,
		rm.MaxOccupants, rm.Status, rm.Description, rm.UpdatedAt, rm.ID)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// Delete removes a room unless it has PENDING or CONFIRMED bookings.
func (r *RoomRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	if _, err := r.ownedRoom(ctx, id, ownerID); err != nil {
		return err
	}
	var active int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE room_id = ? AND status IN ('PENDING','CONFIRMED')", id).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireOne(res)
}

// CountByStatus returns the number of rooms per status.
func (r *RoomRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM rooms GROUP BY status")
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
