package config

// Redis backs three things: the pending payment code store, the distributed
// rate limiter and the listing response cache.  A failed connection at
// startup is not fatal; callers get nil and degrade (no cache, no rate
// limit, stateless payment codes).

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings.  Addr wins over Host/Port.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	TLS        bool
	SkipVerify bool
}

// LoadRedisConfig reads REDIS_ADDR, REDIS_HOST/REDIS_PORT, REDIS_PASSWORD,
// REDIS_DB, REDIS_TLS and REDIS_TLS_SKIP_VERIFY.
func LoadRedisConfig() RedisConfig {
	addr := envStr("REDIS_ADDR", "")
	if addr == "" {
		addr = envStr("REDIS_HOST", "localhost") + ":" + envStr("REDIS_PORT", "6379")
	}
	return RedisConfig{
		Addr:       addr,
		Password:   envStr("REDIS_PASSWORD", ""),
		DB:         envInt("REDIS_DB", 0),
		TLS:        envBool("REDIS_TLS", false),
		SkipVerify: envBool("REDIS_TLS_SKIP_VERIFY", false),
	}
}

// NewRedisClient connects and pings with a short timeout.  The returned
// client is nil if the server cannot be reached.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{InsecureSkipVerify: cfg.SkipVerify} //nolint:gosec // opt-in for self-signed dev setups
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
