// Package testutil provides a throwaway SQLite database with the service
// schema and small fixture helpers for package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/stretchr/testify/require"
)

// schema mirrors db/schema.sql in SQLite syntax.
const schema = `
CREATE TABLE users (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  full_name     TEXT     NOT NULL,
  email         TEXT     NOT NULL UNIQUE,
  phone         TEXT     NULL UNIQUE,
  password_hash TEXT     NOT NULL,
  role          TEXT     NOT NULL DEFAULT 'GUEST',
  balance       DECIMAL(14,2) NOT NULL DEFAULT 0,
  is_active     BOOLEAN  NOT NULL DEFAULT 1,
  created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE hostels (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  owner_id     INTEGER  NOT NULL,
  name         TEXT     NOT NULL,
  address      TEXT     NOT NULL,
  ward         TEXT     NULL,
  district     TEXT     NULL,
  city         TEXT     NULL,
  description  TEXT     NULL,
  total_floors INTEGER  NOT NULL DEFAULT 1,
  created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE rooms (
  id              INTEGER PRIMARY KEY AUTOINCREMENT,
  hostel_id       INTEGER  NOT NULL,
  room_number     TEXT     NOT NULL,
  floor           INTEGER  NOT NULL DEFAULT 1,
  area_m2         DECIMAL(8,2)  NOT NULL DEFAULT 0,
  price_per_month DECIMAL(14,2) NOT NULL,
  deposit_amount  DECIMAL(14,2) NOT NULL DEFAULT 0,
  max_occupants   INTEGER  NOT NULL DEFAULT 1,
  status          TEXT     NOT NULL DEFAULT 'AVAILABLE',
  description     TEXT     NULL,
  created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (hostel_id, room_number)
);
CREATE TABLE bookings (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  room_id     INTEGER  NOT NULL,
  customer_id INTEGER  NOT NULL,
  start_date  DATE     NOT NULL,
  end_date    DATE     NULL,
  status      TEXT     NOT NULL DEFAULT 'PENDING',
  total_price DECIMAL(14,2) NOT NULL,
  created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE payments (
  id              INTEGER PRIMARY KEY AUTOINCREMENT,
  booking_id      INTEGER  NOT NULL,
  amount          DECIMAL(14,2) NOT NULL,
  method          TEXT     NOT NULL,
  note            TEXT     NULL,
  status          TEXT     NOT NULL,
  idempotency_key TEXT     NULL UNIQUE,
  created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE reviews (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  room_id     INTEGER  NOT NULL,
  customer_id INTEGER  NOT NULL,
  rating      INTEGER  NOT NULL,
  comment     TEXT     NULL,
  created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// NewDB opens a fresh file-backed database in t.TempDir with the schema
// applied.  WAL mode plus a busy timeout lets several pooled connections
// run transactions at the same time, so concurrency tests overlap for real.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(8)
	_, err = db.Exec(schema)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// exec runs an insert and returns the new row id.
func exec(t testing.TB, db *sql.DB, q string, args ...any) uint64 {
	t.Helper()
	res, err := db.Exec(q, args...)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

// SeedUser inserts an active user with an unusable password hash.
func SeedUser(t testing.TB, db *sql.DB, email, role string) uint64 {
	now := time.Now().UTC()
	return exec(t, db,
		"INSERT INTO users (full_name, email, password_hash, role, balance, is_active, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?)",
		email, email, "x", role, 0, true, now, now)
}

// SeedHostel inserts a hostel owned by ownerID.
func SeedHostel(t testing.TB, db *sql.DB, ownerID uint64, name string) uint64 {
	now := time.Now().UTC()
	return exec(t, db,
		"INSERT INTO hostels (owner_id, name, address, city, total_floors, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		ownerID, name, "1 Test Street", "Hanoi", 3, now, now)
}

// SeedRoom inserts an AVAILABLE room with the given monthly price.
func SeedRoom(t testing.TB, db *sql.DB, hostelID uint64, number string, price int64) uint64 {
	now := time.Now().UTC()
	return exec(t, db,
		`INSERT INTO rooms (hostel_id, room_number, floor, area_m2, price_per_month, deposit_amount, max_occupants, status, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		hostelID, number, 1, 20, price, 0, 2, "AVAILABLE", now, now)
}

// SeedBooking inserts a booking in the given status starting today.
func SeedBooking(t testing.TB, db *sql.DB, roomID, customerID uint64, status string, total int64) uint64 {
	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return exec(t, db,
		`INSERT INTO bookings (room_id, customer_id, start_date, status, total_price, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?)`,
		roomID, customerID, day, status, total, now, now)
}

// SeedBookingWithID inserts a booking with an explicit primary key.
func SeedBookingWithID(t testing.TB, db *sql.DB, id, roomID, customerID uint64, status string, total int64) {
	t.Helper()
	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	_, err := db.Exec(
		`INSERT INTO bookings (id, room_id, customer_id, start_date, status, total_price, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		id, roomID, customerID, day, status, total, now, now)
	require.NoError(t, err)
}

// BookingStatus reads the status column of a booking.
func BookingStatus(t testing.TB, db *sql.DB, id uint64) string {
	t.Helper()
	var s string
	require.NoError(t, db.QueryRow("SELECT status FROM bookings WHERE id = ?", id).Scan(&s))
	return s
}

// CountPayments returns the number of payment rows for a booking.
func CountPayments(t testing.TB, db *sql.DB, bookingID uint64) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM payments WHERE booking_id = ?", bookingID).Scan(&n))
	return n
}
