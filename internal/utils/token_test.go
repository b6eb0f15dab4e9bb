package utils

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodec(t *testing.T, now time.Time) *TokenCodec {
	t.Helper()
	c, err := NewTokenCodec([]byte("test-secret-0123456789abcdef"), 24*time.Hour)
	require.NoError(t, err)
	return c.WithClock(func() time.Time { return now })
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := newCodec(t, now)

	for _, tc := range []struct {
		id   uint64
		role string
	}{{1, "GUEST"}, {42, "HOSTELOWNER"}, {1<<63 + 5, "ADMIN"}} {
		tok, exp, err := c.Issue(tc.id, tc.role)
		require.NoError(t, err)
		assert.Equal(t, now.Add(24*time.Hour), exp)
		assert.Equal(t, 1, strings.Count(tok, "."))
		assert.NotContains(t, tok, "=")

		assert.True(t, c.Validate(tok))
		sub, ok := c.Subject(tok)
		require.True(t, ok)
		assert.Equal(t, tc.id, sub)

		cl, err := c.Parse(tok)
		require.NoError(t, err)
		assert.Equal(t, tc.role, cl.Role)
	}
}

func TestTokenPayloadFormat(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	c := newCodec(t, now)
	tok, _, err := c.Issue(7, "GUEST")
	require.NoError(t, err)

	enc, _, _ := strings.Cut(tok, ".")
	payload, err := base64.RawURLEncoding.DecodeString(enc)
	require.NoError(t, err)
	assert.Equal(t, "7|GUEST|1700086400000", string(payload))
}

func TestTokenExpiry(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tok, exp, err := newCodec(t, issued).Issue(1, "GUEST")
	require.NoError(t, err)

	assert.True(t, newCodec(t, exp).Validate(tok), "valid at the expiry instant")
	assert.False(t, newCodec(t, exp.Add(time.Millisecond)).Validate(tok))
	_, ok := newCodec(t, exp.Add(time.Hour)).Subject(tok)
	assert.False(t, ok)
}

func TestTokenSignatureBitFlip(t *testing.T) {
	c := newCodec(t, time.Now())
	tok, _, err := c.Issue(99, "ADMIN")
	require.NoError(t, err)
	enc, encSig, _ := strings.Cut(tok, ".")
	sig, err := base64.RawURLEncoding.DecodeString(encSig)
	require.NoError(t, err)

	for i := 0; i < len(sig)*8; i++ {
		flipped := append([]byte(nil), sig...)
		flipped[i/8] ^= 1 << (i % 8)
		bad := enc + "." + base64.RawURLEncoding.EncodeToString(flipped)
		require.False(t, c.Validate(bad), "bit %d", i)
	}

	// flips applied to the encoded text, including the unused trailing bits
	for i := 0; i < len(encSig); i++ {
		for b := 0; b < 8; b++ {
			raw := []byte(encSig)
			raw[i] ^= 1 << b
			require.False(t, c.Validate(enc+"."+string(raw)), "char %d bit %d", i, b)
		}
	}
}

func TestTokenMalformed(t *testing.T) {
	c := newCodec(t, time.Now())
	good, _, err := c.Issue(5, "GUEST")
	require.NoError(t, err)
	enc, sig, _ := strings.Cut(good, ".")

	signed := func(payload string) string {
		raw, err := jwt.SigningMethodHS256.Sign(payload, c.keys[0])
		require.NoError(t, err)
		return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + base64.RawURLEncoding.EncodeToString(raw)
	}

	cases := map[string]string{
		"empty":            "",
		"no separator":     enc + sig,
		"two separators":   enc + "." + sig + ".x",
		"bad payload b64":  "!!!" + "." + sig,
		"bad sig b64":      enc + ".***",
		"padded":           enc + "=." + sig,
		"two fields":       signed("5|GUEST"),
		"four fields":      signed("5|GUEST|9999999999999|x"),
		"non-numeric exp":  signed("5|GUEST|tomorrow"),
		"non-numeric user": signed("five|GUEST|9999999999999"),
		"swapped segments": sig + "." + enc,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, c.Validate(tok))
				_, ok := c.Subject(tok)
				assert.False(t, ok)
				_, err := c.Parse(tok)
				assert.ErrorIs(t, err, ErrInvalidToken)
			})
		})
	}
}

func TestTokenWrongSecret(t *testing.T) {
	a := newCodec(t, time.Now())
	b, err := NewTokenCodec([]byte("another-secret"), time.Hour)
	require.NoError(t, err)
	tok, _, err := a.Issue(1, "GUEST")
	require.NoError(t, err)
	assert.False(t, b.Validate(tok))
}

func TestTokenRotation(t *testing.T) {
	old, err := NewTokenCodec([]byte("old-secret"), time.Hour)
	require.NoError(t, err)
	tok, _, err := old.Issue(3, "HOSTELOWNER")
	require.NoError(t, err)

	rotated, err := NewTokenCodec([]byte("new-secret"), time.Hour, []byte("old-secret"))
	require.NoError(t, err)
	assert.True(t, rotated.Validate(tok), "retired key still verifies")

	fresh, _, err := rotated.Issue(3, "HOSTELOWNER")
	require.NoError(t, err)
	assert.False(t, old.Validate(fresh), "new tokens are signed with the primary key")
}

func TestNewTokenCodecRejectsEmptySecret(t *testing.T) {
	_, err := NewTokenCodec(nil, time.Hour)
	assert.Error(t, err)

	c, err := NewTokenCodec([]byte("k"), 0)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, c.TTL())
}

func TestIssueRejectsSeparatorInRole(t *testing.T) {
	c := newCodec(t, time.Now())
	_, _, err := c.Issue(1, "GUEST|ADMIN")
	assert.Error(t, err)
}
