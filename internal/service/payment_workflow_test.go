package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/hostel-booking/internal/model"
	"github.com/iliyamo/hostel-booking/internal/queue"
	"github.com/iliyamo/hostel-booking/internal/repository"
	"github.com/iliyamo/hostel-booking/internal/testutil"
)

type fakeMatcher struct {
	paid  bool
	calls atomic.Int32
}

func (f *fakeMatcher) CheckPayment(context.Context, uint64, int, int64) bool {
	f.calls.Add(1)
	return f.paid
}

type fakePublisher struct{ events chan queue.BookingConfirmedEvent }

func (f *fakePublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	f.events <- ev
	return nil
}

type fixture struct {
	db    *sql.DB
	mr    *miniredis.Miniredis
	wf    *PaymentWorkflow
	pub   *fakePublisher
	guest uint64
	owner uint64
	room  uint64
}

// newFixture seeds a hostel with one room and a guest.  strict enables the
// Redis pending-code store.
func newFixture(t *testing.T, strict bool, matcher PaymentChecker) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{db: db, pub: &fakePublisher{events: make(chan queue.BookingConfirmedEvent, 16)}}
	f.owner = testutil.SeedUser(t, db, "owner@example.com", model.RoleHostelOwner)
	f.guest = testutil.SeedUser(t, db, "guest@example.com", model.RoleGuest)
	h := testutil.SeedHostel(t, db, f.owner, "Sunrise")
	f.room = testutil.SeedRoom(t, db, h, "101", 300000)

	var pending *repository.PendingPaymentStore
	if strict {
		f.mr = miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: f.mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		pending = repository.NewPendingPaymentStore(rdb, 30*time.Minute)
	}
	f.wf = NewPaymentWorkflow(WorkflowDeps{
		DB:       db,
		Bookings: repository.NewBookingRepo(db),
		Payments: repository.NewPaymentRepo(db),
		Pending:  pending,
		QR:       NewQRGenerator(testPaymentConfig()),
		Matcher:  matcher,
		Events:   f.pub,
		Log:      zap.NewNop(),
	})
	return f
}

func (f *fixture) guestCaller() Caller { return Caller{UserID: f.guest, Role: model.RoleGuest} }

// memLedger is a Ledger whose records can be appended during a test.
type memLedger struct {
	mu      sync.Mutex
	records []LedgerRecord
}

func (l *memLedger) Transactions(context.Context, time.Time, time.Time) ([]LedgerRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LedgerRecord(nil), l.records...), nil
}

func (l *memLedger) add(desc string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, LedgerRecord{Description: desc, Amount: decimal.NewFromInt(amount)})
}

func TestWorkflowEndToEnd(t *testing.T) {
	ledger := &memLedger{}
	f := newFixture(t, true, NewPaymentMatcher(ledger, "UTC", zap.NewNop()))
	testutil.SeedBookingWithID(t, f.db, 7, f.room, f.guest, model.BookingPending, 300000)
	ctx := context.Background()

	qr, err := f.wf.RequestQR(ctx, f.guestCaller(), 7, decimal.NewFromInt(300000))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), qr.BookingID)
	assert.Equal(t, int64(300000), qr.Amount)
	assert.Contains(t, qr.QRURL, "addInfo=Booking+7+code+")
	assert.True(t, f.mr.Exists("payment:pending:7"))

	res, err := f.wf.ConfirmAndApply(ctx, f.guestCaller(), 7, qr.Code, 300000)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPaid, res.Outcome)
	assert.False(t, res.Paid)
	assert.Equal(t, model.BookingPending, testutil.BookingStatus(t, f.db, 7))

	ledger.add("IBFT "+ReferenceText(7, qr.Code), 300000)

	res, err = f.wf.ConfirmAndApply(ctx, f.guestCaller(), 7, qr.Code, 300000)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.True(t, res.Paid)
	assert.True(t, res.Applied)
	assert.NotZero(t, res.PaymentID)
	assert.Equal(t, model.BookingConfirmed, testutil.BookingStatus(t, f.db, 7))
	assert.Equal(t, 1, testutil.CountPayments(t, f.db, 7))
	assert.False(t, f.mr.Exists("payment:pending:7"), "pending codes dropped after confirm")

	p, err := repository.NewPaymentRepo(f.db).GetByID(ctx, res.PaymentID)
	require.NoError(t, err)
	assert.True(t, p.Amount.Equal(decimal.NewFromInt(300000)))
	assert.Equal(t, "VIETQR", p.Method)
	assert.Equal(t, "SUCCESS", p.Status)
	assert.Equal(t, fmt.Sprintf("VietQR payment - code %d", qr.Code), p.Note)

	select {
	case ev := <-f.pub.events:
		assert.Equal(t, uint64(7), ev.BookingID)
		assert.Equal(t, f.guest, ev.CustomerID)
		assert.Equal(t, int64(300000), ev.Amount)
	case <-time.After(2 * time.Second):
		t.Fatal("booking.confirmed not published")
	}

	// polling again after the code was settled
	res, err = f.wf.ConfirmAndApply(ctx, f.guestCaller(), 7, qr.Code, 300000)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyApplied, res.Outcome)
	assert.Equal(t, 1, testutil.CountPayments(t, f.db, 7))
}

func TestWorkflowConcurrentConfirmAppliesOnce(t *testing.T) {
	m := &fakeMatcher{paid: true}
	f := newFixture(t, false, m)
	id := testutil.SeedBooking(t, f.db, f.room, f.guest, model.BookingPending, 300000)

	const n = 8
	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		applied  atomic.Int32
		already  atomic.Int32
		failures atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			// half the callers present a different code for the same transfer
			code := 123456 + i%2
			res, err := f.wf.ConfirmAndApply(context.Background(), f.guestCaller(), id, code, 300000)
			switch {
			case err != nil:
				failures.Add(1)
			case res.Outcome == OutcomeApplied:
				applied.Add(1)
			case res.Outcome == OutcomeAlreadyApplied:
				already.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(0), failures.Load())
	assert.Equal(t, int32(1), applied.Load())
	assert.Equal(t, int32(n-1), already.Load())
	assert.Equal(t, 1, testutil.CountPayments(t, f.db, id))
	assert.Equal(t, model.BookingConfirmed, testutil.BookingStatus(t, f.db, id))
}

func TestWorkflowCancelledBookingIsApplyFailure(t *testing.T) {
	f := newFixture(t, false, &fakeMatcher{paid: true})
	id := testutil.SeedBooking(t, f.db, f.room, f.guest, model.BookingCancelled, 300000)

	res, err := f.wf.ConfirmAndApply(context.Background(), f.guestCaller(), id, 555555, 300000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBookingNotPayable)
	assert.Equal(t, OutcomeApplyFailed, res.Outcome)
	assert.True(t, res.Paid)
	assert.False(t, res.Applied)
	assert.Equal(t, 0, testutil.CountPayments(t, f.db, id))
	assert.Equal(t, model.BookingCancelled, testutil.BookingStatus(t, f.db, id))
}

func TestWorkflowWriteFailureRollsBack(t *testing.T) {
	f := newFixture(t, false, &fakeMatcher{paid: true})
	id := testutil.SeedBooking(t, f.db, f.room, f.guest, model.BookingPending, 300000)
	_, err := f.db.Exec("DROP TABLE payments")
	require.NoError(t, err)

	res, err := f.wf.ConfirmAndApply(context.Background(), f.guestCaller(), id, 123456, 300000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrApplyFailed)
	assert.Equal(t, OutcomeApplyFailed, res.Outcome)
	assert.True(t, res.Paid)
	assert.False(t, res.Applied)
	assert.Equal(t, model.BookingPending, testutil.BookingStatus(t, f.db, id), "status flip rolled back")
}

func TestWorkflowStrictRejectsUnknownCode(t *testing.T) {
	m := &fakeMatcher{paid: true}
	f := newFixture(t, true, m)
	id := testutil.SeedBooking(t, f.db, f.room, f.guest, model.BookingPending, 300000)

	res, err := f.wf.ConfirmAndApply(context.Background(), f.guestCaller(), id, 424242, 300000)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPaid, res.Outcome)
	assert.Equal(t, int32(0), m.calls.Load(), "ledger not queried for unknown codes")
	assert.Equal(t, model.BookingPending, testutil.BookingStatus(t, f.db, id))
}

func TestWorkflowStrictRejectsAmountMismatch(t *testing.T) {
	m := &fakeMatcher{paid: true}
	f := newFixture(t, true, m)
	id := testutil.SeedBooking(t, f.db, f.room, f.guest, model.BookingPending, 300000)

	qr, err := f.wf.RequestQR(context.Background(), f.guestCaller(), id, decimal.NewFromInt(300000))
	require.NoError(t, err)
	res, err := f.wf.ConfirmAndApply(context.Background(), f.guestCaller(), id, qr.Code, 1000)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPaid, res.Outcome)
	assert.Equal(t, int32(0), m.calls.Load())
}

func TestWorkflowStrictCodeExpires(t *testing.T) {
	m := &fakeMatcher{paid: true}
	f := newFixture(t, true, m)
	id := testutil.SeedBooking(t, f.db, f.room, f.guest, model.BookingPending, 300000)

	qr, err := f.wf.RequestQR(context.Background(), f.guestCaller(), id, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, int64(300000), qr.Amount, "zero amount means the booking total")
	f.mr.FastForward(31 * time.Minute)

	res, err := f.wf.ConfirmAndApply(context.Background(), f.guestCaller(), id, qr.Code, 300000)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPaid, res.Outcome)
}

func TestWorkflowNotPaidLeavesBookingAlone(t *testing.T) {
	f := newFixture(t, false, &fakeMatcher{paid: false})
	id := testutil.SeedBooking(t, f.db, f.room, f.guest, model.BookingPending, 300000)

	res, err := f.wf.ConfirmAndApply(context.Background(), f.guestCaller(), id, 123456, 300000)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPaid, res.Outcome)
	assert.False(t, res.Paid)
	assert.Equal(t, model.BookingPending, testutil.BookingStatus(t, f.db, id))
	assert.Equal(t, 0, testutil.CountPayments(t, f.db, id))
}

func TestWorkflowAccessControl(t *testing.T) {
	f := newFixture(t, false, &fakeMatcher{paid: true})
	id := testutil.SeedBooking(t, f.db, f.room, f.guest, model.BookingPending, 300000)
	other := testutil.SeedUser(t, f.db, "other@example.com", model.RoleGuest)
	ctx := context.Background()

	_, err := f.wf.RequestQR(ctx, Caller{UserID: other, Role: model.RoleGuest}, id, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, repository.ErrForbidden)
	_, err = f.wf.ConfirmAndApply(ctx, Caller{UserID: other, Role: model.RoleGuest}, id, 123456, 300000)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	_, err = f.wf.RequestQR(ctx, f.guestCaller(), 9999, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.wf.RequestQR(ctx, Caller{UserID: f.owner, Role: model.RoleHostelOwner}, id, decimal.NewFromInt(1))
	assert.NoError(t, err, "hostel owner may issue a code")
	_, err = f.wf.RequestQR(ctx, Caller{UserID: 12345, Role: model.RoleAdmin}, id, decimal.NewFromInt(1))
	assert.NoError(t, err)
}

func TestRequestQRRejectsNonPending(t *testing.T) {
	f := newFixture(t, true, &fakeMatcher{})
	id := testutil.SeedBooking(t, f.db, f.room, f.guest, model.BookingConfirmed, 300000)
	_, err := f.wf.RequestQR(context.Background(), f.guestCaller(), id, decimal.NewFromInt(300000))
	assert.ErrorIs(t, err, ErrBookingNotPayable)

	pending := testutil.SeedBooking(t, f.db, f.room, f.guest, model.BookingPending, 300000)
	_, err = f.wf.RequestQR(context.Background(), f.guestCaller(), pending, decimal.RequireFromString("0.4"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRequestQRIssuesFreshCodes(t *testing.T) {
	f := newFixture(t, true, &fakeMatcher{})
	id := testutil.SeedBooking(t, f.db, f.room, f.guest, model.BookingPending, 300000)
	seen := map[int]bool{}
	for i := 0; i < 5; i++ {
		qr, err := f.wf.RequestQR(context.Background(), f.guestCaller(), id, decimal.NewFromInt(300000))
		require.NoError(t, err)
		seen[qr.Code] = true
	}
	fields, err := f.mr.HKeys("payment:pending:" + strconv.FormatUint(id, 10))
	require.NoError(t, err)
	assert.Len(t, fields, len(seen))
}
