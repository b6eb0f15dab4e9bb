package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/hostel-booking/internal/config"
)

// LedgerRecord is one incoming bank transfer as reported by the ledger.
type LedgerRecord struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	When        string          `json:"when,omitempty"`
}

// Ledger lists recent incoming transfers for the receiving account.
type Ledger interface {
	Transactions(ctx context.Context, from, to time.Time) ([]LedgerRecord, error)
}

// LedgerClient queries the Casso transactions API.
type LedgerClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewLedgerClient(cfg config.PaymentConfig) *LedgerClient {
	return &LedgerClient{
		endpoint: cfg.LedgerEndpoint,
		apiKey:   cfg.LedgerAPIKey,
		http:     &http.Client{Timeout: cfg.LedgerTimeout},
	}
}

type ledgerResponse struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
	Data    struct {
		Records []LedgerRecord `json:"records"`
	} `json:"data"`
}

// Transactions fetches the first page (100 records, newest first) of
// transfers between from and to, both inclusive calendar days.
func (c *LedgerClient) Transactions(ctx context.Context, from, to time.Time) ([]LedgerRecord, error) {
	q := url.Values{}
	q.Set("fromDate", from.Format("2006-01-02"))
	q.Set("toDate", to.Format("2006-01-02"))
	q.Set("page", "1")
	q.Set("pageSize", "100")
	q.Set("sort", "DESC")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Apikey "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ledger: unexpected status %d", resp.StatusCode)
	}

	var body ledgerResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("ledger: decode: %w", err)
	}
	if body.Error != 0 {
		return nil, fmt.Errorf("ledger: error %d: %s", body.Error, body.Message)
	}
	return body.Data.Records, nil
}

// PaymentMatcher decides whether a transfer for a booking has arrived.
// It is stateless; callers poll it.
type PaymentMatcher struct {
	ledger Ledger
	loc    *time.Location
	now    func() time.Time
	log    *zap.Logger
}

// NewPaymentMatcher uses tz as the ledger's calendar.  An unknown zone
// falls back to a fixed UTC+7.
func NewPaymentMatcher(ledger Ledger, tz string, log *zap.Logger) *PaymentMatcher {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warn("ledger timezone not found, using UTC+7", zap.String("tz", tz), zap.Error(err))
		loc = time.FixedZone("ICT", 7*3600)
	}
	return &PaymentMatcher{ledger: ledger, loc: loc, now: time.Now, log: log}
}

// CheckPayment reports whether the ledger holds a transfer from yesterday
// or today whose description contains the booking's reference text and
// whose amount equals amount exactly.  Ledger faults are logged and
// reported as not paid.
func (m *PaymentMatcher) CheckPayment(ctx context.Context, bookingID uint64, code int, amount int64) bool {
	today := m.now().In(m.loc)
	records, err := m.ledger.Transactions(ctx, today.AddDate(0, 0, -1), today)
	if err != nil {
		m.log.Warn("ledger query failed", zap.Uint64("booking_id", bookingID), zap.Error(err))
		return false
	}

	want := strings.ToLower(strings.TrimSpace(ReferenceText(bookingID, code)))
	expected := decimal.NewFromInt(amount)
	for _, r := range records {
		desc := strings.ToLower(strings.TrimSpace(r.Description))
		if strings.Contains(desc, want) && r.Amount.Equal(expected) {
			return true
		}
	}
	m.log.Debug("no matching transfer", zap.Uint64("booking_id", bookingID),
		zap.String("code", strconv.Itoa(code)), zap.Int("records", len(records)))
	return false
}
