package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hostel-booking/internal/model"
)

// HostelRepo encapsulates all database queries related to hostels.  Write
// methods take the owner ID and refuse to touch hostels owned by someone
// else, returning ErrForbidden.
type HostelRepo struct {
	db *sql.DB
}

// NewHostelRepo constructs a HostelRepo with the provided DB handle.
func NewHostelRepo(db *sql.DB) *HostelRepo {
	return &HostelRepo{db: db}
}

const hostelCols = "id, owner_id, name, address, ward, district, city, description, total_floors, created_at, updated_at"

func scanHostel(row rowScanner) (*model.Hostel, error) {
	var (
		h                          model.Hostel
		ward, district, city, desc sql.NullString
	)
	if err := row.Scan(&h.ID, &h.OwnerID, &h.Name, &h.Address, &ward, &district, &city, &desc,
		&h.TotalFloors, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	h.Ward, h.District, h.City, h.Description = ward.String, district.String, city.String, desc.String
	return &h, nil
}

// Create inserts a new hostel.  On success the hostel's ID and timestamps
// are populated.
func (r *HostelRepo) Create(ctx context.Context, h *model.Hostel) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO hostels (owner_id, name, address, ward, district, city, description, total_floors, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.OwnerID, h.Name, h.Address, h.Ward, h.District, h.City, h.Description, h.TotalFloors, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	h.CreatedAt, h.UpdatedAt = now, now
	return nil
}

// GetByID fetches a hostel regardless of owner.
func (r *HostelRepo) GetByID(ctx context.Context, id uint64) (*model.Hostel, error) {
	h, err := scanHostel(r.db.QueryRowContext(ctx, "SELECT "+hostelCols+" FROM hostels WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return h, nil
}

// HostelFilter narrows List.  Zero values disable a filter.
type HostelFilter struct {
	OwnerID uint64
	City    string
	Limit   int
	Offset  int
}

// List returns hostels ordered by id.
func (r *HostelRepo) List(ctx context.Context, f HostelFilter) ([]*model.Hostel, error) {
	q := "SELECT " + hostelCols + " FROM hostels WHERE 1=1"
	var args []any
	if f.OwnerID != 0 {
		q += " AND owner_id = ?"
		args = append(args, f.OwnerID)
	}
	if f.City != "" {
		q += " AND city = ?"
		args = append(args, f.City)
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	q += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Hostel{}
	for rows.Next() {
		h, err := scanHostel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// checkOwner returns ErrNotFound when the hostel does not exist and
// ErrForbidden when it belongs to another owner.
func (r *HostelRepo) checkOwner(ctx context.Context, id, ownerID uint64) error {
	var actual uint64
	err := r.db.QueryRowContext(ctx, "SELECT owner_id FROM hostels WHERE id = ?", id).Scan(&actual)
	if err != nil {
		return notFound(err)
	}
	if actual != ownerID {
		return ErrForbidden
	}
	return nil
}

// Update overwrites the editable fields of a hostel owned by h.OwnerID.
func (r *HostelRepo) Update(ctx context.Context, h *model.Hostel) error {
	if err := r.checkOwner(ctx, h.ID, h.OwnerID); err != nil {
		return err
	}
	h.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`UPDATE hostels SET name = ?, address = ?, ward = ?, district = ?, city = ?, description = ?, total_floors = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		h.Name, h.Address, h.Ward, h.District, h.City, h.Description, h.TotalFloors, h.UpdatedAt, h.ID, h.OwnerID)
	return err
}

// Delete removes a hostel owned by ownerID.  A hostel that still has
// PENDING or CONFIRMED bookings on any of its rooms cannot be deleted and
// ErrConflict is returned.
func (r *HostelRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	if err := r.checkOwner(ctx, id, ownerID); err != nil {
		return err
	}
	return r.delete(ctx, id)
}

// DeleteAny removes a hostel regardless of owner.  Used by admins.
func (r *HostelRepo) DeleteAny(ctx context.Context, id uint64) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return r.delete(ctx, id)
}

func (r *HostelRepo) delete(ctx context.Context, id uint64) error {
	var active int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings b JOIN rooms rm ON rm.id = b.room_id
		 WHERE rm.hostel_id = ? AND b.status IN ('PENDING','CONFIRMED')`, id).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM hostels WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireOne(res)
}

// Count returns the total number of hostels.
func (r *HostelRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM hostels").Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}
