package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smart-waste/internal/cache"
	"github.com/iliyamo/smart-waste/internal/config"
	"github.com/iliyamo/smart-waste/internal/model"
)

func TestLeaderboardUsesCacheAndInvalidates(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	lb := cache.NewLeaderboard(config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "t"}, rdb, quietLogger())

	env := newTestEnv(t, func(o *Options) { o.Cache = lb })
	ctx := context.Background()
	a := env.resident(t, "alice", env.zoneA)
	b := env.resident(t, "bob", env.zoneA)

	_, err := env.recycle.LogRecycling(ctx, a, model.RecyclingEntry{Category: model.CategoryPaper, WeightKg: 2})
	require.NoError(t, err)
	_, err = env.recycle.LogRecycling(ctx, b, model.RecyclingEntry{Category: model.CategoryMetal, WeightKg: 2})
	require.NoError(t, err)

	board, err := env.stats.Leaderboard(ctx, 5)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "bob", board[0].LoginID)
	assert.EqualValues(t, 12, board[0].Points)
	assert.Equal(t, 2, board[1].Rank)
	assert.True(t, mr.Exists("t:leaderboard:5"))

	// Served from cache even though the table changed underneath.
	_, err = env.db.Exec(`UPDATE users SET total_points = 100 WHERE login_id = 'alice'`)
	require.NoError(t, err)
	board, err = env.stats.Leaderboard(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "bob", board[0].LoginID)

	// A points change through the ledger drops the cache.
	_, err = env.recycle.LogRecycling(ctx, a, model.RecyclingEntry{Category: model.CategoryPaper, WeightKg: 1})
	require.NoError(t, err)
	assert.False(t, mr.Exists("t:leaderboard:5"))
	board, err = env.stats.Leaderboard(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "alice", board[0].LoginID)
	assert.EqualValues(t, 103, board[0].Points)
}

func TestOverviewAndCollectorMetrics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r := env.resident(t, "metrics", env.zoneA)

	done, err := env.pickups.CreateRequest(ctx, r, slot(10, 0))
	require.NoError(t, err)
	failed, err := env.pickups.CreateRequest(ctx, r, slot(10, 30))
	require.NoError(t, err)
	_, err = env.pickups.CreateRequest(ctx, r, slot(11, 0))
	require.NoError(t, err)

	_, err = env.pickups.Transition(ctx, env.collector, TransitionInput{PickupID: done, NewStatus: model.StatusCompleted})
	require.NoError(t, err)
	_, err = env.pickups.Transition(ctx, env.collector, TransitionInput{PickupID: failed, NewStatus: model.StatusFailed, Comment: "gate locked"})
	require.NoError(t, err)

	m, err := env.stats.CollectorMetrics(ctx, env.collector)
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.Completed)
	assert.EqualValues(t, 1, m.Failed)
	assert.EqualValues(t, 1, m.Open)

	_, err = env.stats.CollectorMetrics(ctx, r)
	assert.ErrorIs(t, err, ErrUnauthorized)

	o, err := env.stats.Overview(ctx, env.admin)
	require.NoError(t, err)
	assert.EqualValues(t, 3, o.Users)
	assert.EqualValues(t, 3, o.PickupRequests)
	assert.Zero(t, o.RecyclingLogs)
	// 3 submitted + 2 status for the resident, 2 summaries for the admin
	assert.EqualValues(t, 7, o.Notifications)

	_, err = env.stats.Overview(ctx, r)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
