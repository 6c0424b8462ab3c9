// Package app is the composition root the desktop UI talks to.  It opens
// the database, wires the services and turns logins into session tokens.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/smart-waste/internal/cache"
	"github.com/iliyamo/smart-waste/internal/config"
	"github.com/iliyamo/smart-waste/internal/database"
	"github.com/iliyamo/smart-waste/internal/model"
	"github.com/iliyamo/smart-waste/internal/queue"
	"github.com/iliyamo/smart-waste/internal/service"
	"github.com/iliyamo/smart-waste/internal/utils"
)

// App bundles the core services over one database session.
type App struct {
	DB            *sql.DB
	Identity      *service.Identity
	Pickups       *service.Pickups
	Recycling     *service.Recycling
	Notifications *service.Notifications
	Zones         *service.Zones
	Stats         *service.Stats

	cfg config.Config
	log *slog.Logger
	rdb *redis.Client
	now func() time.Time
}

// New opens cfg.DBPath, migrates it, seeds demo data when enabled and wires
// the services.  Redis and RabbitMQ are optional; an unreachable Redis only
// disables the leaderboard cache.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if cfg.SeedDemo {
		if err := database.Seed(ctx, db, log); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	rdb := config.NewRedisClient(cfg.Cache)
	if cfg.Cache.Enabled && rdb == nil {
		log.Warn("redis unavailable, leaderboard cache disabled", "addr", cfg.Cache.Addr)
	}

	opts := service.OptionsFromConfig(cfg, log)
	opts.Cache = cache.NewLeaderboard(cfg.Cache, rdb, log)
	opts.Events = queue.NewPublisher(cfg.RabbitMQURL, log)
	return build(db, cfg, opts, rdb, log), nil
}

func build(db *sql.DB, cfg config.Config, opts service.Options, rdb *redis.Client, log *slog.Logger) *App {
	notes := service.NewNotifications(db, opts)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &App{
		DB:            db,
		Identity:      service.NewIdentity(db, opts),
		Pickups:       service.NewPickups(db, notes, opts),
		Recycling:     service.NewRecycling(db, opts),
		Notifications: notes,
		Zones:         service.NewZones(db, opts),
		Stats:         service.NewStats(db, opts),
		cfg:           cfg,
		log:           log,
		rdb:           rdb,
		now:           now,
	}
}

// Close releases the database and the Redis client.
func (a *App) Close() error {
	var errs []error
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	errs = append(errs, a.DB.Close())
	return errors.Join(errs...)
}

// Session is what the UI keeps after a successful login.
type Session struct {
	Token utils.SessionToken
	User  model.User
}

// Login verifies the credentials and issues a signed session token.
func (a *App) Login(ctx context.Context, loginID, password string) (Session, error) {
	u, err := a.Identity.VerifyCredentials(ctx, loginID, password)
	if err != nil {
		return Session{}, err
	}
	tok, err := utils.NewSessionToken(a.cfg.SessionSecret, u.LoginID, string(u.Role), a.cfg.SessionTTL, a.now())
	if err != nil {
		return Session{}, &service.OperationError{Op: "issue session", Err: err}
	}
	a.log.Info("login", "login_id", u.LoginID, "role", u.Role)
	return Session{Token: tok, User: u}, nil
}

// Actor resolves a session token back to the caller.  Services still reload
// the account, so a deactivated user's token stops working at once.
func (a *App) Actor(token string) (service.Actor, error) {
	claims, err := utils.ParseSessionToken(a.cfg.SessionSecret, token, a.now())
	if err != nil {
		return service.Actor{}, service.ErrUnauthorized
	}
	role, err := model.ParseRole(claims.Role)
	if err != nil {
		return service.Actor{}, service.ErrUnauthorized
	}
	return service.Actor{LoginID: claims.LoginID, Role: role}, nil
}
