package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hostel-booking/internal/model"
)

type ReviewRepo struct {
	db *sql.DB
}

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

const reviewCols = "id, room_id, customer_id, rating, comment, created_at, updated_at"

func scanReview(row rowScanner) (*model.Review, error) {
	var (
		rv      model.Review
		comment sql.NullString
	)
	if err := row.Scan(&rv.ID, &rv.RoomID, &rv.CustomerID, &rv.Rating, &comment, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
		return nil, err
	}
	rv.Comment = comment.String
	return &rv, nil
}

func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO reviews (room_id, customer_id, rating, comment, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		rv.RoomID, rv.CustomerID, rv.Rating, rv.Comment, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	rv.CreatedAt, rv.UpdatedAt = now, now
	return nil
}

// List returns reviews newest first.  roomID 0 lists every review.
func (r *ReviewRepo) List(ctx context.Context, roomID uint64, limit, offset int) ([]*model.Review, error) {
	q := "SELECT " + reviewCols + " FROM reviews"
	var args []any
	if roomID != 0 {
		q += " WHERE room_id = ?"
		args = append(args, roomID)
	}
	q += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireOne(res)
}

func (r *ReviewRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews").Scan(&n)
	return n, err
}
