// Package service implements the waste-collection core: identity and
// credentials, the pickup lifecycle, the points ledger and notifications.
// Every multi-step mutation runs in one transaction on the injected
// session and either fully applies or returns an error with nothing
// written.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/iliyamo/smart-waste/internal/cache"
	"github.com/iliyamo/smart-waste/internal/config"
	"github.com/iliyamo/smart-waste/internal/model"
	"github.com/iliyamo/smart-waste/internal/queue"
	"github.com/iliyamo/smart-waste/internal/repository"
)

// Actor identifies who is calling.  Only LoginID is trusted: the role and
// active flag are always reloaded from storage.
type Actor struct {
	LoginID string
	Role    model.Role
}

// Options configures the services.  Zero values fall back to defaults.
type Options struct {
	Now                func() time.Time
	Log                *slog.Logger
	Lockout            config.LockoutConfig
	Pickup             config.PickupConfig
	NotifyAdmins       bool
	AllowRoleAtProfile bool
	Cache              *cache.Leaderboard
	Events             queue.Publisher
}

// OptionsFromConfig maps application configuration onto Options.
func OptionsFromConfig(cfg config.Config, log *slog.Logger) Options {
	return Options{
		Log:                log,
		Lockout:            cfg.Lockout,
		Pickup:             cfg.Pickup,
		NotifyAdmins:       cfg.NotifyAdmins,
		AllowRoleAtProfile: cfg.AllowRoleAtProfile,
	}
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	if o.Lockout.Threshold < 1 {
		o.Lockout.Threshold = 5
	}
	if o.Lockout.Cooldown <= 0 {
		o.Lockout.Cooldown = 10 * time.Minute
	}
	p := &o.Pickup
	if p.MinLead <= 0 {
		p.MinLead = 30 * time.Minute
	}
	if p.WindowStart == 0 && p.WindowEnd == 0 {
		p.WindowStart, p.WindowEnd = 8, 18
	}
	if p.SlotMinutes <= 0 {
		p.SlotMinutes = 30
	}
	if p.ReasonMinLen <= 0 {
		p.ReasonMinLen = 3
	}
	if p.Location == nil {
		p.Location = time.Local
	}
	if o.Events == nil {
		o.Events = queue.NopPublisher{}
	}
	return o
}

// now returns the clock truncated to the millisecond precision of storage.
func (o Options) now() time.Time { return o.Now().UTC().Truncate(time.Millisecond) }

// authorize loads the actor and checks it is active and holds one of roles
// (any role when none are given).  tx may be nil outside a transaction.
func authorize(ctx context.Context, users *repository.UserRepo, tx *sql.Tx, a Actor, roles ...model.Role) (model.User, error) {
	if a.LoginID == "" {
		return model.User{}, ErrUnauthorized
	}
	var (
		u   model.User
		err error
	)
	if tx != nil {
		u, err = users.GetByLoginIDTx(ctx, tx, a.LoginID)
	} else {
		u, err = users.GetByLoginID(ctx, a.LoginID)
	}
	if err == repository.ErrNotFound {
		return model.User{}, ErrUnauthorized
	}
	if err != nil {
		return model.User{}, err
	}
	if !u.IsActive {
		return model.User{}, ErrUnauthorized
	}
	if len(roles) == 0 {
		return u, nil
	}
	for _, r := range roles {
		if u.Role == r {
			return u, nil
		}
	}
	return model.User{}, ErrUnauthorized
}
