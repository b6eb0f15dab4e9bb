package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/hostel-booking/internal/model"
)

// PaymentRepo persists payments.  VietQR payments are only written through
// CreateTx, inside the transaction that confirms the booking.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentCols = "id, booking_id, amount, method, note, status, idempotency_key, created_at"

func scanPayment(row rowScanner) (*model.Payment, error) {
	var (
		p    model.Payment
		note sql.NullString
		key  sql.NullString
	)
	if err := row.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &note, &p.Status, &key, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Note = note.String
	if key.Valid {
		k := key.String
		p.IdempotencyKey = &k
	}
	return &p, nil
}

// CreateTx inserts a payment inside the caller's transaction and populates
// p.ID.  A repeated idempotency key yields ErrConflict.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	var key any
	if p.IdempotencyKey != nil {
		key = *p.IdempotencyKey
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (booking_id, amount, method, note, status, idempotency_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.BookingID, p.Amount, p.Method, p.Note, p.Status, key, p.CreatedAt)
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
	p.ID = uint64(id)
	return nil
}

// GetByID fetches a payment.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, "SELECT "+paymentCols+" FROM payments WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// GetByIdempotencyKey fetches the payment recorded under key.
func (r *PaymentRepo) GetByIdempotencyKey(ctx context.Context, key string) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, "SELECT "+paymentCols+" FROM payments WHERE idempotency_key = ?", key))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// ListByBooking returns the payments of a booking in insertion order.
func (r *PaymentRepo) ListByBooking(ctx context.Context, bookingID uint64) ([]*model.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+paymentCols+" FROM payments WHERE booking_id = ? ORDER BY id", bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SumSuccessful returns the number and total amount of SUCCESS payments.
func (r *PaymentRepo) SumSuccessful(ctx context.Context) (int64, decimal.Decimal, error) {
	var (
		n     int64
		total decimal.NullDecimal
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), SUM(amount) FROM payments WHERE status = ?", model.PaymentSuccess).Scan(&n, &total)
	if err != nil {
		return 0, decimal.Zero, err
	}
	if !total.Valid {
		return n, decimal.Zero, nil
	}
	return n, total.Decimal, nil
}
