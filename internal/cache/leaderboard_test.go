package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smart-waste/internal/config"
	"github.com/iliyamo/smart-waste/internal/model"
)

func newTestCache(t *testing.T) (*Leaderboard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "test"}
	return NewLeaderboard(cfg, rdb, nil), mr
}

func TestLeaderboardSetGetInvalidate(t *testing.T) {
	lb, mr := newTestCache(t)
	ctx := context.Background()

	_, hit := lb.Get(ctx, 10)
	assert.False(t, hit)

	entries := []model.LeaderboardEntry{{Rank: 1, LoginID: "r1", FullName: "R One", Points: 60}}
	lb.Set(ctx, 10, entries)
	lb.Set(ctx, 5, entries)

	got, hit := lb.Get(ctx, 10)
	require.True(t, hit)
	assert.Equal(t, entries, got)
	assert.True(t, mr.Exists("test:leaderboard:10"))

	lb.Invalidate(ctx)
	_, hit = lb.Get(ctx, 10)
	assert.False(t, hit)
	_, hit = lb.Get(ctx, 5)
	assert.False(t, hit)
}

func TestLeaderboardExpires(t *testing.T) {
	lb, mr := newTestCache(t)
	ctx := context.Background()
	lb.Set(ctx, 3, []model.LeaderboardEntry{{Rank: 1, LoginID: "r1"}})

	mr.FastForward(2 * time.Minute)
	_, hit := lb.Get(ctx, 3)
	assert.False(t, hit)
}

func TestLeaderboardDisabled(t *testing.T) {
	var nilCache *Leaderboard
	_, hit := nilCache.Get(context.Background(), 10)
	assert.False(t, hit)
	nilCache.Set(context.Background(), 10, nil)
	nilCache.Invalidate(context.Background())

	lb := NewLeaderboard(config.CacheConfig{}, nil, nil)
	lb.Set(context.Background(), 10, []model.LeaderboardEntry{{LoginID: "x"}})
	_, hit = lb.Get(context.Background(), 10)
	assert.False(t, hit)
}

func TestLeaderboardCorruptValueIsMiss(t *testing.T) {
	lb, mr := newTestCache(t)
	require.NoError(t, mr.Set("test:leaderboard:10", "{not json"))
	_, hit := lb.Get(context.Background(), 10)
	assert.False(t, hit)
}
