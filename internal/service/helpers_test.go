package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smart-waste/internal/config"
	"github.com/iliyamo/smart-waste/internal/database"
	"github.com/iliyamo/smart-waste/internal/model"
	"github.com/iliyamo/smart-waste/internal/queue"
)

// testClock is a settable clock shared by all services in an env.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.PickupStatusChangedEvent
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, ev queue.PickupStatusChangedEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

type testEnv struct {
	db       *sql.DB
	clock    *testClock
	events   *recordingPublisher
	opts     Options
	identity *Identity
	notes    *Notifications
	pickups  *Pickups
	recycle  *Recycling
	zones    *Zones
	stats    *Stats

	zoneA, zoneB int64
	admin        Actor
	collector    Actor
}

var testStart = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestEnv(t *testing.T, tweak ...func(*Options)) *testEnv {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "sw.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, db, quietLogger()))
	require.NoError(t, database.Seed(ctx, db, quietLogger()))

	env := &testEnv{
		db:        db,
		clock:     &testClock{now: testStart},
		events:    &recordingPublisher{},
		admin:     Actor{LoginID: database.SeedAdminLogin, Role: model.RoleMunicipalAdmin},
		collector: Actor{LoginID: database.SeedCollectorLogin, Role: model.RoleWasteCollector},
	}
	env.opts = Options{
		Now:     env.clock.Now,
		Log:     quietLogger(),
		Lockout: config.LockoutConfig{Threshold: 5, Cooldown: 10 * time.Minute},
		Pickup: config.PickupConfig{
			MinLead: 30 * time.Minute, WindowStart: 8, WindowEnd: 18,
			SlotMinutes: 30, ReasonMinLen: 3, Location: time.UTC,
		},
		NotifyAdmins: true,
		Events:       env.events,
	}
	for _, f := range tweak {
		f(&env.opts)
	}
	env.identity = NewIdentity(db, env.opts)
	env.notes = NewNotifications(db, env.opts)
	env.pickups = NewPickups(db, env.notes, env.opts)
	env.recycle = NewRecycling(db, env.opts)
	env.zones = NewZones(db, env.opts)
	env.stats = NewStats(db, env.opts)

	require.NoError(t, db.QueryRow(`SELECT id FROM zones WHERE name = ?`, database.SeedZoneA).Scan(&env.zoneA))
	require.NoError(t, db.QueryRow(`SELECT id FROM zones WHERE name = ?`, database.SeedZoneB).Scan(&env.zoneB))
	return env
}

// resident registers and completes a resident in zoneID.
func (e *testEnv) resident(t *testing.T, loginID string, zoneID int64) Actor {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.identity.CreatePending(ctx, loginID, "Passw0rd!"))
	require.NoError(t, e.identity.CompleteProfile(ctx, loginID, model.Profile{
		FullName: "Resident " + loginID,
		Email:    loginID + "@example.com",
		ZoneID:   zoneID,
	}))
	return Actor{LoginID: loginID, Role: model.RoleResident}
}

// staff creates a collector in zoneID.
func (e *testEnv) staffCollector(t *testing.T, loginID string, zoneID int64) Actor {
	t.Helper()
	require.NoError(t, e.identity.CreateStaff(context.Background(), e.admin, model.StaffAccount{
		LoginID:  loginID,
		Password: "collector!",
		Role:     model.RoleWasteCollector,
		ZoneID:   &zoneID,
	}))
	return Actor{LoginID: loginID, Role: model.RoleWasteCollector}
}

// slot returns a valid pickup time on the test day.
func slot(hour, minute int) time.Time {
	return time.Date(testStart.Year(), testStart.Month(), testStart.Day(), hour, minute, 0, 0, time.UTC)
}

func (e *testEnv) points(t *testing.T, loginID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.QueryRow(`SELECT total_points FROM users WHERE login_id = ?`, loginID).Scan(&n))
	return n
}

func (e *testEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(query, args...).Scan(&n))
	return n
}
