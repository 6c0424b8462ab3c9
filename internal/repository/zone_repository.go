package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/smart-waste/internal/model"
)

// ZoneRepo manages collection zones.
type ZoneRepo struct{ db Session }

func NewZoneRepo(db Session) *ZoneRepo { return &ZoneRepo{db: db} }

const zoneColumns = `id, name, is_active, service_hours, created_at`

func scanZone(s rowScanner) (model.Zone, error) {
	var (
		z       model.Zone
		hours   sql.NullString
		created int64
	)
	if err := s.Scan(&z.ID, &z.Name, &z.IsActive, &hours, &created); err != nil {
		return model.Zone{}, err
	}
	z.ServiceHours = strPtr(hours)
	z.CreatedAt = fromMillis(created)
	return z, nil
}

func getZone(ctx context.Context, q Querier, id int64) (model.Zone, error) {
	z, err := scanZone(q.QueryRowContext(ctx, "SELECT "+zoneColumns+" FROM zones WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Zone{}, ErrNotFound
	}
	return z, err
}

// GetByID fetches a zone by id.
func (r *ZoneRepo) GetByID(ctx context.Context, id int64) (model.Zone, error) {
	return getZone(ctx, r.db, id)
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *ZoneRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id int64) (model.Zone, error) {
	return getZone(ctx, tx, id)
}

// Create inserts a zone and returns its id.  Names are unique.
func (r *ZoneRepo) Create(ctx context.Context, name string, serviceHours string, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO zones (name, is_active, service_hours, created_at) VALUES (?, 1, ?, ?)`,
		strings.TrimSpace(name), nullStr(serviceHours), toMillis(now))
	if err != nil {
		if isUniqueViolation(err, "zones.name") {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return res.LastInsertId()
}

// Rename changes a zone's canonical name.  Pickup requests keep the name
// they were created with.
func (r *ZoneRepo) Rename(ctx context.Context, id int64, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE zones SET name = ? WHERE id = ?`, strings.TrimSpace(name), id)
	if err != nil {
		if isUniqueViolation(err, "zones.name") {
			return ErrDuplicate
		}
		return err
	}
	return requireOneRow(res)
}

// SetActive toggles the activity flag.
func (r *ZoneRepo) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE zones SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// SetServiceHours replaces the free-form service hours; empty clears them.
func (r *ZoneRepo) SetServiceHours(ctx context.Context, id int64, hours string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE zones SET service_hours = ? WHERE id = ?`, nullStr(hours), id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// DeleteTx removes an unused zone.  A zone still referenced by a user or a
// pickup request yields ErrConflict and nothing is deleted.
func (r *ZoneRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := getZone(ctx, tx, id); err != nil {
		return err
	}
	var refs int64
	if err := tx.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM users WHERE zone_id = ?) +
		       (SELECT COUNT(*) FROM pickup_requests WHERE zone_id = ?)`, id, id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrConflict
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM zones WHERE id = ?`, id)
	return err
}

// List returns all zones ordered by name.
func (r *ZoneRepo) List(ctx context.Context, activeOnly bool) ([]model.Zone, error) {
	q := "SELECT " + zoneColumns + " FROM zones"
	if activeOnly {
		q += " WHERE is_active = 1"
	}
	q += " ORDER BY name"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}
