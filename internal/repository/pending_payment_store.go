package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PendingPayment is a confirmation code issued for a booking and not yet
// settled.
type PendingPayment struct {
	BookingID uint64    `json:"bookingId"`
	Code      int       `json:"code"`
	Amount    int64     `json:"amount"`
	IssuedAt  time.Time `json:"issuedAt"`
}

// PendingPaymentStore keeps issued codes in a Redis hash per booking
// (payment:pending:{bookingId}, one field per code).  The whole hash
// expires ttl after the most recent issue.
type PendingPaymentStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewPendingPaymentStore(rdb *redis.Client, ttl time.Duration) *PendingPaymentStore {
	return &PendingPaymentStore{rdb: rdb, prefix: "payment:pending", ttl: ttl}
}

func (s *PendingPaymentStore) key(bookingID uint64) string {
	return fmt.Sprintf("%s:%d", s.prefix, bookingID)
}

// Put records an issued code.
func (s *PendingPaymentStore) Put(ctx context.Context, p PendingPayment) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	k := s.key(p.BookingID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, strconv.Itoa(p.Code), b)
		pipe.Expire(ctx, k, s.ttl)
		return nil
	})
	return err
}

// Lookup returns the pending entry for a booking and code.  ok is false
// when the code was never issued or has expired.
func (s *PendingPaymentStore) Lookup(ctx context.Context, bookingID uint64, code int) (p PendingPayment, ok bool, err error) {
	raw, err := s.rdb.HGet(ctx, s.key(bookingID), strconv.Itoa(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return p, false, nil
	}
	if err != nil {
		return p, false, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, false, err
	}
	return p, true, nil
}

// Clear drops every pending code of a booking.
func (s *PendingPaymentStore) Clear(ctx context.Context, bookingID uint64) error {
	return s.rdb.Del(ctx, s.key(bookingID)).Err()
}
