package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smart-waste/internal/config"
	"github.com/iliyamo/smart-waste/internal/database"
	"github.com/iliyamo/smart-waste/internal/model"
	"github.com/iliyamo/smart-waste/internal/service"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DBPath:        filepath.Join(t.TempDir(), "app.db"),
		SeedDemo:      true,
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
		Lockout:       config.LockoutConfig{Threshold: 5, Cooldown: 10 * time.Minute},
		Pickup: config.PickupConfig{
			MinLead: 30 * time.Minute, WindowStart: 8, WindowEnd: 18,
			SlotMinutes: 30, ReasonMinLen: 3, Location: time.UTC,
		},
	}
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestLoginIssuesResolvableToken(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	ctx := context.Background()

	sess, err := a.Login(ctx, database.SeedAdminLogin, database.SeedAdminPassword)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMunicipalAdmin, sess.User.Role)

	actor, err := a.Actor(sess.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, service.Actor{LoginID: database.SeedAdminLogin, Role: model.RoleMunicipalAdmin}, actor)

	zones, err := a.Zones.ListZones(ctx, false)
	require.NoError(t, err)
	assert.Len(t, zones, 2)

	_, err = a.Actor(sess.Token.Token + "x")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = a.Login(ctx, database.SeedAdminLogin, "wrong")
	assert.ErrorIs(t, err, service.ErrBadCredentials)
}

func TestReopenKeepsStateAndSeedsOnce(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	_, err = a.Login(ctx, database.SeedCollectorLogin, "wrong")
	require.Error(t, err)
	require.NoError(t, a.Close())

	b := newTestApp(t, cfg)
	var attempts, users int
	require.NoError(t, b.DB.QueryRow(`SELECT failed_attempts FROM users WHERE login_id = ?`, database.SeedCollectorLogin).Scan(&attempts))
	require.NoError(t, b.DB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&users))
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 2, users)
}

func TestResidentFlowThroughApp(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	ctx := context.Background()

	zones, err := a.Zones.ListZones(ctx, true)
	require.NoError(t, err)
	require.NoError(t, a.Identity.CreatePending(ctx, "resident9", "Str0ng!pw"))
	require.NoError(t, a.Identity.CompleteProfile(ctx, "resident9", model.Profile{
		FullName: "Resident Nine", Email: "r9@example.com", ZoneID: zones[0].ID,
	}))

	sess, err := a.Login(ctx, "resident9", "Str0ng!pw")
	require.NoError(t, err)
	me, err := a.Actor(sess.Token.Token)
	require.NoError(t, err)

	rec, err := a.Recycling.LogRecycling(ctx, me, model.RecyclingEntry{Category: model.CategoryMetal, WeightKg: 1.5})
	require.NoError(t, err)
	assert.EqualValues(t, 9, rec.Points)

	board, err := a.Stats.Leaderboard(ctx, 3)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, "resident9", board[0].LoginID)
}
