package config

import "time"

// PaymentConfig groups the VietQR image settings, the transaction ledger
// (Casso) credentials and the pending-code policy.
type PaymentConfig struct {
	ImageService string // base URL of the QR image renderer
	BankID       string // short bank code, lower-cased in image URLs
	AccountNo    string // receiving account number
	AccountName  string // receiving account holder, shown by banking apps
	Template     string // VietQR image template name

	LedgerEndpoint string        // transactions listing endpoint
	LedgerAPIKey   string        // sent as "Authorization: Apikey <key>"
	LedgerTimeout  time.Duration // bound on a single ledger query
	LedgerTimezone string        // calendar used for the fromDate/toDate window

	CodeTTL     time.Duration // lifetime of an issued confirmation code
	StrictCodes bool          // only accept codes the server issued
}

// LoadPaymentConfig reads payment settings.  All values have defaults except
// the account details and the ledger key, which default to empty and are
// checked at startup by the caller.
func LoadPaymentConfig() PaymentConfig {
	return PaymentConfig{
		ImageService: envStr("VIETQR_IMAGE_SERVICE", "https://img.vietqr.io/image"),
		BankID:       envStr("VIETQR_BANK_ID", "mbbank"),
		AccountNo:    envStr("VIETQR_ACCOUNT_NO", ""),
		AccountName:  envStr("VIETQR_ACCOUNT_NAME", ""),
		Template:     envStr("VIETQR_TEMPLATE", "compact2"),

		LedgerEndpoint: envStr("LEDGER_ENDPOINT", "https://oauth.casso.vn/v2/transactions"),
		LedgerAPIKey:   envStr("LEDGER_API_KEY", ""),
		LedgerTimeout:  envDur("LEDGER_TIMEOUT", 10*time.Second),
		LedgerTimezone: envStr("LEDGER_TIMEZONE", "Asia/Ho_Chi_Minh"),

		CodeTTL:     envDur("PAYMENT_CODE_TTL", 30*time.Minute),
		StrictCodes: envBool("PAYMENT_STRICT_CODES", true),
	}
}
