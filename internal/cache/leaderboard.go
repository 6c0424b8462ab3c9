// Package cache holds the optional Redis-backed read-model cache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/smart-waste/internal/config"
	"github.com/iliyamo/smart-waste/internal/model"
)

// Leaderboard caches ranked resident lists per limit.  A nil *Leaderboard
// or one built with a nil client is a valid, disabled cache: Get always
// misses and Set/Invalidate do nothing.
type Leaderboard struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    *slog.Logger
}

// NewLeaderboard returns a cache backed by rdb.  rdb may be nil.
func NewLeaderboard(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger) *Leaderboard {
	if log == nil {
		log = slog.Default()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "smartwaste"
	}
	return &Leaderboard{rdb: rdb, prefix: prefix, ttl: ttl, log: log.With("component", "cache")}
}

func (l *Leaderboard) enabled() bool { return l != nil && l.rdb != nil }

func (l *Leaderboard) key(limit int) string {
	return fmt.Sprintf("%s:leaderboard:%d", l.prefix, limit)
}

func (l *Leaderboard) indexKey() string { return l.prefix + ":leaderboard:keys" }

// Get returns the cached entries for limit.  Any Redis or decode error is
// logged and reported as a miss.
func (l *Leaderboard) Get(ctx context.Context, limit int) ([]model.LeaderboardEntry, bool) {
	if !l.enabled() {
		return nil, false
	}
	bs, err := l.rdb.Get(ctx, l.key(limit)).Bytes()
	if err != nil {
		if err != redis.Nil {
			l.log.Warn("leaderboard cache read failed", "err", err)
		}
		return nil, false
	}
	var out []model.LeaderboardEntry
	if err := json.Unmarshal(bs, &out); err != nil {
		l.log.Warn("leaderboard cache decode failed", "err", err)
		return nil, false
	}
	return out, true
}

// Set stores entries for limit with the configured TTL.
func (l *Leaderboard) Set(ctx context.Context, limit int, entries []model.LeaderboardEntry) {
	if !l.enabled() {
		return
	}
	bs, err := json.Marshal(entries)
	if err != nil {
		return
	}
	pipe := l.rdb.TxPipeline()
	pipe.Set(ctx, l.key(limit), bs, l.ttl)
	pipe.SAdd(ctx, l.indexKey(), l.key(limit))
	pipe.Expire(ctx, l.indexKey(), l.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warn("leaderboard cache write failed", "err", err)
	}
}

// Invalidate drops every cached leaderboard.  Called after points change.
func (l *Leaderboard) Invalidate(ctx context.Context) {
	if !l.enabled() {
		return
	}
	keys, err := l.rdb.SMembers(ctx, l.indexKey()).Result()
	if err != nil {
		l.log.Warn("leaderboard cache invalidate failed", "err", err)
		return
	}
	keys = append(keys, l.indexKey())
	if err := l.rdb.Del(ctx, keys...).Err(); err != nil {
		l.log.Warn("leaderboard cache invalidate failed", "err", err)
	}
}
