package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/iliyamo/smart-waste/internal/model"
	"github.com/iliyamo/smart-waste/internal/repository"
)

// Zones administers collection zones.  Renaming a zone does not touch the
// zone name stored on existing pickup requests.
type Zones struct {
	db    repository.Session
	users *repository.UserRepo
	zones *repository.ZoneRepo
	opts  Options
	log   *slog.Logger
}

func NewZones(db repository.Session, opts Options) *Zones {
	opts = opts.withDefaults()
	return &Zones{
		db:    db,
		users: repository.NewUserRepo(db),
		zones: repository.NewZoneRepo(db),
		opts:  opts,
		log:   opts.Log.With("component", "zones"),
	}
}

func (s *Zones) admin(ctx context.Context, a Actor) error {
	_, err := authorize(ctx, s.users, nil, a, model.RoleMunicipalAdmin)
	return err
}

// CreateZone adds a zone.  A taken name yields ErrConflict.
func (s *Zones) CreateZone(ctx context.Context, admin Actor, name, serviceHours string) (int64, error) {
	if err := s.admin(ctx, admin); err != nil {
		return 0, fail("create zone", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, invalid("zone name is required")
	}
	id, err := s.zones.Create(ctx, name, strings.TrimSpace(serviceHours), s.opts.now())
	if err != nil {
		return 0, fail("create zone", err)
	}
	s.log.Info("zone created", "zone_id", id, "name", name)
	return id, nil
}

// RenameZone changes the canonical zone name.
func (s *Zones) RenameZone(ctx context.Context, admin Actor, id int64, name string) error {
	if err := s.admin(ctx, admin); err != nil {
		return fail("rename zone", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("zone name is required")
	}
	return fail("rename zone", s.zones.Rename(ctx, id, name))
}

// SetZoneActive toggles whether the zone is offered for new registrations.
func (s *Zones) SetZoneActive(ctx context.Context, admin Actor, id int64, active bool) error {
	if err := s.admin(ctx, admin); err != nil {
		return fail("set zone active", err)
	}
	return fail("set zone active", s.zones.SetActive(ctx, id, active))
}

// SetServiceHours replaces the zone's service hours; empty clears them.
func (s *Zones) SetServiceHours(ctx context.Context, admin Actor, id int64, hours string) error {
	if err := s.admin(ctx, admin); err != nil {
		return fail("set service hours", err)
	}
	return fail("set service hours", s.zones.SetServiceHours(ctx, id, strings.TrimSpace(hours)))
}

// DeleteZone removes a zone nobody references.  A zone still used by a user
// or a pickup request yields ErrConflict and is kept.
func (s *Zones) DeleteZone(ctx context.Context, admin Actor, id int64) error {
	if err := s.admin(ctx, admin); err != nil {
		return fail("delete zone", err)
	}
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.zones.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return fail("delete zone", err)
	}
	s.log.Info("zone deleted", "zone_id", id, "by", admin.LoginID)
	return nil
}

// ListZones returns zones ordered by name.
func (s *Zones) ListZones(ctx context.Context, activeOnly bool) ([]model.Zone, error) {
	out, err := s.zones.List(ctx, activeOnly)
	return out, fail("list zones", err)
}

// GetZone returns one zone.
func (s *Zones) GetZone(ctx context.Context, id int64) (model.Zone, error) {
	z, err := s.zones.GetByID(ctx, id)
	return z, fail("get zone", err)
}
