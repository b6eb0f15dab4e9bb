package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/hostel-booking/internal/config"
	"github.com/iliyamo/hostel-booking/internal/utils"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func serve(e *echo.Echo, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestBearerAuthAndRole(t *testing.T) {
	codec, err := utils.NewTokenCodec([]byte("secret"), time.Hour)
	require.NoError(t, err)

	e := echo.New()
	g := e.Group("", BearerAuth(codec))
	g.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, strconv.FormatUint(c.Get("user_id").(uint64), 10)+" "+c.Get("role").(string))
	})
	g.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole("ADMIN"))

	guest, _, err := codec.Issue(5, "GUEST")
	require.NoError(t, err)
	admin, _, err := codec.Issue(1, "ADMIN")
	require.NoError(t, err)

	rec := serve(e, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer " + guest})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5 GUEST", rec.Body.String())

	for _, h := range []string{"", "Basic abc", "Bearer ", "Bearer " + guest + "x", "Bearer not.a-token"} {
		rec = serve(e, http.MethodGet, "/me", map[string]string{"Authorization": h})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, h)
		assert.JSONEq(t, `{"error":"unauthenticated"}`, rec.Body.String())
	}

	rec = serve(e, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + guest})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = serve(e, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + admin})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimiterBlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute, TTL: 10 * time.Minute,
		KeyStrategy: "ip", Prefix: "test:rl",
	}
	e := echo.New()
	e.GET("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewRateLimiter(cfg, rdb).Middleware(zap.NewNop()))

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodGet, "/login", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(1-i), rec.Header().Get("X-RateLimit-Remaining"))
	}
	rec := serve(e, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimiterRefills(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "p"}
	l := NewRateLimiter(cfg, rdb)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	d, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	d, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.RetryAfter)

	now = now.Add(1500 * time.Millisecond)
	d, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRateLimiterFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewRateLimiter(cfg, rdb).Middleware(zap.NewNop()))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x", nil).Code)
}

func TestResponseCache(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "test:cache", MaxBodyBytes: 1 << 20}
	var calls atomic.Int32
	e := echo.New()
	e.GET("/hostels", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusOK, echo.Map{"n": calls.Load()})
	}, ResponseCache(cfg, rdb, zap.NewNop()))

	first := serve(e, http.MethodGet, "/hostels?city=Hue", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := serve(e, http.MethodGet, "/hostels?city=Hue", nil)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))
	assert.Equal(t, int32(1), calls.Load())

	serve(e, http.MethodGet, "/hostels?city=Hanoi", nil)
	assert.Equal(t, int32(2), calls.Load(), "query is part of the key")

	authed := serve(e, http.MethodGet, "/hostels?city=Hue", map[string]string{"Authorization": "Bearer x"})
	assert.Empty(t, authed.Header().Get("X-Cache"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(201, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, got, body, err := decodePayload(bs)
	require.NoError(t, err)
	assert.Equal(t, 201, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, err = decodePayload([]byte{0, 0})
	assert.Error(t, err)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger(zap.NewNop()))
	e.GET("/ping", func(c echo.Context) error {
		assert.NotNil(t, Logger(c))
		return c.NoContent(http.StatusOK)
	})

	rec := serve(e, http.MethodGet, "/ping", nil)
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)

	rec = serve(e, http.MethodGet, "/ping", map[string]string{echo.HeaderXRequestID: "abc"})
	assert.Equal(t, "abc", rec.Header().Get(echo.HeaderXRequestID))
}
