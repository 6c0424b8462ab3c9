package config

// This file defines the Redis client constructor.  Redis is optional: it only
// backs the leaderboard cache.  If the server cannot be reached during
// startup the constructor returns nil and callers run without a cache.

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheConfig defines settings for the leaderboard cache.  When Enabled is
// false or no Redis client is available, reads go straight to SQLite.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string

	Addr     string
	Password string
	DB       int
	TLS      bool
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Supported variables are:
//
//	REDIS_HOST and REDIS_PORT - hostname and port of the Redis server
//	REDIS_ADDR - host:port shorthand (used when host/port are not both set)
//	REDIS_PASSWORD - optional password
//	REDIS_DB - database number (default 0)
//	REDIS_TLS - enable TLS when "true" or "1"
//
// The cache is disabled unless an address is configured.
func LoadCacheConfig() CacheConfig {
	addr := envStr("REDIS_ADDR", "")
	host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", "")
	if host != "" && port != "" {
		addr = host + ":" + port
	}
	tlsEnv := envStr("REDIS_TLS", "")
	return CacheConfig{
		Enabled:  envBool("CACHE_ENABLED", addr != ""),
		TTL:      envDur("LEADERBOARD_CACHE_TTL", 30*time.Second),
		Prefix:   envStr("CACHE_PREFIX", "smartwaste"),
		Addr:     addr,
		Password: envStr("REDIS_PASSWORD", ""),
		DB:       envInt("REDIS_DB", 0),
		TLS:      strings.EqualFold(tlsEnv, "true") || tlsEnv == "1",
	}
}

// NewRedisClient instantiates a Redis client from cfg.  It returns nil when
// the cache is disabled or the server does not answer a ping.
func NewRedisClient(cfg CacheConfig) *redis.Client {
	if !cfg.Enabled || cfg.Addr == "" {
		return nil
	}
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
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
