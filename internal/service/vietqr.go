// Package service holds the payment logic that sits between the HTTP
// handlers and the repositories: VietQR image links, matching bank
// transfers against the transaction ledger, and confirming bookings once
// a transfer is found.
package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/hostel-booking/internal/config"
)

const (
	minCode  = 100000
	codeSpan = 900000 // codes are in [100000, 999999]
)

// QRGenerator builds VietQR image URLs for a fixed receiving account.
type QRGenerator struct {
	imageService string
	bankID       string
	accountNo    string
	accountName  string
	template     string
}

func NewQRGenerator(cfg config.PaymentConfig) *QRGenerator {
	return &QRGenerator{
		imageService: strings.TrimRight(cfg.ImageService, "/"),
		bankID:       strings.ToLower(cfg.BankID),
		accountNo:    cfg.AccountNo,
		accountName:  cfg.AccountName,
		template:     cfg.Template,
	}
}

// RandomCode returns a uniformly distributed six digit code from
// crypto/rand.  Codes only correlate a transfer with a booking; two
// bookings may draw the same code.
func RandomCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return 0, err
	}
	return minCode + int(n.Int64()), nil
}

// ReferenceText is the transfer description the customer's bank app fills
// in from the QR code, and what the ledger matcher searches for.
func ReferenceText(bookingID uint64, code int) string {
	return fmt.Sprintf("Booking %d code %d", bookingID, code)
}

// BuildURL returns the image URL for a transfer of amount to the
// configured account.  The amount is truncated to whole dong, so 1000.99
// becomes 1000.
func (g *QRGenerator) BuildURL(amount decimal.Decimal, bookingID uint64, code int) string {
	return fmt.Sprintf("%s/%s-%s-%s.png?amount=%d&addInfo=%s&accountName=%s",
		g.imageService, g.bankID, g.accountNo, g.template,
		amount.IntPart(),
		url.QueryEscape(ReferenceText(bookingID, code)),
		url.QueryEscape(g.accountName))
}
