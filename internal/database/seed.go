package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/smart-waste/internal/utils"
)

// Demo accounts created by Seed.
const (
	SeedAdminLogin     = "admin01"
	SeedAdminPassword  = "admin123"
	SeedCollectorLogin = "collect01"
	SeedCollectorPass  = "collector123"
	SeedZoneA          = "Zone A"
	SeedZoneB          = "Zone B"
)

// Seed inserts the demo zones, an administrator and a collector assigned to
// Zone A.  Existing rows are left untouched, so running it twice is a no-op.
func Seed(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	now := time.Now().UTC().UnixMilli()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, z := range []string{SeedZoneA, SeedZoneB} {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO zones (name, is_active, created_at) VALUES (?, 1, ?)`, z, now); err != nil {
			return fmt.Errorf("seed zone %s: %w", z, err)
		}
	}

	var zoneA int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM zones WHERE name = ?`, SeedZoneA).Scan(&zoneA); err != nil {
		return fmt.Errorf("seed zone lookup: %w", err)
	}

	staff := []struct {
		login, password, role, name string
		zone                        *int64
	}{
		{SeedAdminLogin, SeedAdminPassword, "MunicipalAdmin", "Administrator", nil},
		{SeedCollectorLogin, SeedCollectorPass, "WasteCollector", "Collector A", &zoneA},
	}
	created := 0
	for _, s := range staff {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE login_id = ?`, s.login).Scan(&exists)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return err
		}
		hash, err := utils.HashPassword(s.password)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (login_id, password_hash, role, zone_id, full_name,
			                   is_active, profile_completed, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 1, 1, ?, ?)`,
			s.login, hash, s.role, s.zone, s.name, now, now); err != nil {
			return fmt.Errorf("seed user %s: %w", s.login, err)
		}
		created++
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	if created > 0 {
		log.Info("demo data seeded", "component", "database", "accounts", created)
	}
	return nil
}
