package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smart-waste/internal/model"
)

func TestDeleteZone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("unused", func(t *testing.T) {
		id, err := env.zones.CreateZone(ctx, env.admin, "Zone C", "Mon-Fri 08:00-18:00")
		require.NoError(t, err)
		require.NoError(t, env.zones.DeleteZone(ctx, env.admin, id))
		_, err = env.zones.GetZone(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("referenced by a user", func(t *testing.T) {
		// the seeded collector lives in Zone A
		assert.ErrorIs(t, env.zones.DeleteZone(ctx, env.admin, env.zoneA), ErrConflict)
		z, err := env.zones.GetZone(ctx, env.zoneA)
		require.NoError(t, err)
		assert.Equal(t, "Zone A", z.Name)
	})

	t.Run("referenced only by a pickup", func(t *testing.T) {
		r := env.resident(t, "mover", env.zoneB)
		_, err := env.pickups.CreateRequest(ctx, r, slot(10, 0))
		require.NoError(t, err)
		zoneA := env.zoneA
		require.NoError(t, env.identity.UpdateUser(ctx, env.admin, "mover", model.UserUpdate{ZoneID: &zoneA}))

		assert.ErrorIs(t, env.zones.DeleteZone(ctx, env.admin, env.zoneB), ErrConflict)
	})

	t.Run("missing", func(t *testing.T) {
		assert.ErrorIs(t, env.zones.DeleteZone(ctx, env.admin, 424242), ErrNotFound)
	})

	t.Run("non admin", func(t *testing.T) {
		assert.ErrorIs(t, env.zones.DeleteZone(ctx, env.collector, env.zoneB), ErrUnauthorized)
	})
}

func TestZoneAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.zones.CreateZone(ctx, env.admin, "Zone A", "")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = env.zones.CreateZone(ctx, env.admin, "  ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.ErrorIs(t, env.zones.RenameZone(ctx, env.admin, env.zoneB, "Zone A"), ErrConflict)
	require.NoError(t, env.zones.SetServiceHours(ctx, env.admin, env.zoneB, "Sat 09:00-12:00"))
	require.NoError(t, env.zones.SetZoneActive(ctx, env.admin, env.zoneB, false))

	active, err := env.zones.ListZones(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Zone A", active[0].Name)

	all, err := env.zones.ListZones(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[1].ServiceHours)
	assert.Equal(t, "Sat 09:00-12:00", *all[1].ServiceHours)
	assert.False(t, all[1].IsActive)
}
