package utils

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the only error Parse returns.  Every failure (bad
// encoding, bad signature, wrong shape, expired) maps to it so callers
// cannot tell which check rejected the token.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the content of a verified bearer token.
type Claims struct {
	UserID    uint64
	Role      string
	ExpiresAt time.Time
}

// TokenCodec issues and verifies compact bearer tokens of the form
//
//	base64url(payload) "." base64url(HMAC-SHA256(payload))
//
// where payload is "{userId}|{role}|{expiryEpochMillis}".  Tokens are
// stateless: there is no server-side session or revocation list.
//
// The first key signs; any further keys are retired keys that still
// verify, so a secret can be rotated without logging everyone out.
type TokenCodec struct {
	keys [][]byte
	ttl  time.Duration
	now  func() time.Time
}

var (
	b64      = base64.RawURLEncoding
	b64Check = base64.RawURLEncoding.Strict()
)

// NewTokenCodec builds a codec.  secret must be non-empty; ttl <= 0 means
// 24 hours.
func NewTokenCodec(secret []byte, ttl time.Duration, retired ...[]byte) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	keys := [][]byte{secret}
	for _, k := range retired {
		if len(k) > 0 {
			keys = append(keys, k)
		}
	}
	return &TokenCodec{keys: keys, ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source.  Used by tests.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// TTL returns the lifetime of issued tokens.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for userID and role, valid for the configured TTL.
func (c *TokenCodec) Issue(userID uint64, role string) (string, time.Time, error) {
	if strings.Contains(role, "|") {
		return "", time.Time{}, fmt.Errorf("role %q contains the field separator", role)
	}
	exp := c.now().Add(c.ttl)
	payload := fmt.Sprintf("%d|%s|%d", userID, role, exp.UnixMilli())
	sig, err := jwt.SigningMethodHS256.Sign(payload, c.keys[0])
	if err != nil {
		return "", time.Time{}, err
	}
	return b64.EncodeToString([]byte(payload)) + "." + b64.EncodeToString(sig), exp, nil
}

// Parse verifies a token and returns its claims.
func (c *TokenCodec) Parse(token string) (Claims, error) {
	if token == "" || strings.Count(token, ".") != 1 {
		return Claims{}, ErrInvalidToken
	}
	enc, encSig, _ := strings.Cut(token, ".")
	payload, err := b64Check.DecodeString(enc)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	sig, err := b64Check.DecodeString(encSig)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	if !c.verify(string(payload), sig) {
		return Claims{}, ErrInvalidToken
	}

	parts := strings.Split(string(payload), "|")
	if len(parts) != 3 {
		return Claims{}, ErrInvalidToken
	}
	uid, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	expMillis, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	if c.now().UnixMilli() > expMillis {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: uid, Role: parts[1], ExpiresAt: time.UnixMilli(expMillis).UTC()}, nil
}

// verify checks sig against every configured key.  The HS256 method
// compares with hmac.Equal.
func (c *TokenCodec) verify(payload string, sig []byte) bool {
	for _, k := range c.keys {
		if jwt.SigningMethodHS256.Verify(payload, sig, k) == nil {
			return true
		}
	}
	return false
}

// Validate reports whether token is authentic and unexpired.
func (c *TokenCodec) Validate(token string) bool {
	_, err := c.Parse(token)
	return err == nil
}

// Subject returns the user id of a valid token.
func (c *TokenCodec) Subject(token string) (uint64, bool) {
	cl, err := c.Parse(token)
	if err != nil {
		return 0, false
	}
	return cl.UserID, true
}
