package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadPaymentConfig_Defaults(t *testing.T) {
	t.Setenv("VIETQR_BANK_ID", "")
	t.Setenv("LEDGER_TIMEOUT", "")
	t.Setenv("PAYMENT_STRICT_CODES", "")

	cfg := LoadPaymentConfig()

	assert.Equal(t, "https://img.vietqr.io/image", cfg.ImageService)
	assert.Equal(t, "mbbank", cfg.BankID)
	assert.Equal(t, "compact2", cfg.Template)
	assert.Equal(t, 10*time.Second, cfg.LedgerTimeout)
	assert.Equal(t, 30*time.Minute, cfg.CodeTTL)
	assert.True(t, cfg.StrictCodes)
}

func TestLoadPaymentConfig_Overrides(t *testing.T) {
	t.Setenv("VIETQR_BANK_ID", "VCB")
	t.Setenv("LEDGER_TIMEOUT", "3s")
	t.Setenv("PAYMENT_STRICT_CODES", "off")
	t.Setenv("PAYMENT_CODE_TTL", "5m")

	cfg := LoadPaymentConfig()

	assert.Equal(t, "VCB", cfg.BankID)
	assert.Equal(t, 3*time.Second, cfg.LedgerTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CodeTTL)
	assert.False(t, cfg.StrictCodes)
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()

	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadRedisConfig_AddrWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:7000")
	t.Setenv("REDIS_HOST", "ignored")
	t.Setenv("REDIS_PORT", "1")

	assert.Equal(t, "cache:7000", LoadRedisConfig().Addr)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}
