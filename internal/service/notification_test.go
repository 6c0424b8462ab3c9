package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smart-waste/internal/model"
)

func TestSendAndMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r := env.resident(t, "reader", env.zoneA)
	other := env.resident(t, "nosy", env.zoneA)

	require.NoError(t, env.notes.Send(ctx, env.admin, "reader", "Holiday", "No pickups on Friday."))
	assert.ErrorIs(t, env.notes.Send(ctx, r, "nosy", "Hi", "there"), ErrUnauthorized)
	assert.ErrorIs(t, env.notes.Send(ctx, env.admin, "ghost", "Hi", "there"), ErrNotFound)
	assert.ErrorIs(t, env.notes.Send(ctx, env.admin, "reader", " ", "there"), ErrInvalidInput)

	list, err := env.notes.List(ctx, r, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.NotifyAdminMessage, list[0].Type)
	id := list[0].ID

	assert.ErrorIs(t, env.notes.MarkRead(ctx, other, id), ErrNotFound)

	require.NoError(t, env.notes.MarkRead(ctx, r, id))
	env.clock.Advance(time.Minute)
	require.NoError(t, env.notes.MarkRead(ctx, r, id))

	n, err := env.notes.UnreadCount(ctx, r)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := env.notes.List(ctx, r, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].ReadAt)
	assert.Equal(t, testStart, *all[0].ReadAt)
}

func TestBroadcastByRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.resident(t, "b1", env.zoneA)
	env.resident(t, "b2", env.zoneB)
	env.resident(t, "b3", env.zoneB)
	require.NoError(t, env.identity.DeactivateUser(ctx, env.admin, "b3"))

	sent, err := env.notes.Broadcast(ctx, env.admin, model.RoleResident, "Reminder", "Sort your glass.")
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	sent, err = env.notes.Broadcast(ctx, env.admin, "", "Maintenance", "Tonight 22:00.")
	require.NoError(t, err)
	assert.Equal(t, 4, sent)

	_, err = env.notes.Broadcast(ctx, env.admin, "Janitor", "x", "y")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.notes.Broadcast(ctx, env.collector, "", "x", "y")
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, 2, env.count(t, `SELECT COUNT(*) FROM notifications WHERE user_id = 'b1'`))
	assert.Zero(t, env.count(t, `SELECT COUNT(*) FROM notifications WHERE user_id = 'b3'`))
}

func TestNotificationsRequireActiveAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r := env.resident(t, "retired", env.zoneA)
	require.NoError(t, env.notes.Send(ctx, env.admin, "retired", "Notice", "Account review."))

	list, err := env.notes.List(ctx, r, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	id := list[0].ID

	require.NoError(t, env.identity.DeactivateUser(ctx, env.admin, "retired"))

	_, err = env.notes.List(ctx, r, false)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.notes.UnreadCount(ctx, r)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, env.notes.MarkRead(ctx, r, id), ErrUnauthorized)
	_, err = env.notes.List(ctx, Actor{LoginID: "ghost"}, false)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM notifications WHERE user_id = 'retired' AND read_at IS NULL`))
}
