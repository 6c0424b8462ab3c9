package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/smart-waste/internal/model"
)

// PickupRepo persists pickup requests.  The status column is a cached
// projection of the status ledger; it is only written together with a
// ledger row by the lifecycle engine.
type PickupRepo struct{ db Session }

func NewPickupRepo(db Session) *PickupRepo { return &PickupRepo{db: db} }

const pickupColumns = `id, resident_id, zone_id, zone_name, requested_at, status, collector_id,
	points_awarded, created_at, updated_at`

func scanPickup(s rowScanner) (model.PickupRequest, error) {
	var (
		p                           model.PickupRequest
		status                      string
		collector                   sql.NullString
		requested, created, updated int64
	)
	if err := s.Scan(&p.ID, &p.ResidentID, &p.ZoneID, &p.ZoneName, &requested, &status, &collector,
		&p.PointsAwarded, &created, &updated); err != nil {
		return model.PickupRequest{}, err
	}
	p.Status = model.PickupStatus(status)
	p.CollectorID = strPtr(collector)
	p.RequestedAt = fromMillis(requested)
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}

func getPickup(ctx context.Context, q Querier, id uint64) (model.PickupRequest, error) {
	p, err := scanPickup(q.QueryRowContext(ctx, "SELECT "+pickupColumns+" FROM pickup_requests WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.PickupRequest{}, ErrNotFound
	}
	return p, err
}

// GetByID fetches a pickup request.
func (r *PickupRepo) GetByID(ctx context.Context, id uint64) (model.PickupRequest, error) {
	return getPickup(ctx, r.db, id)
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *PickupRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.PickupRequest, error) {
	return getPickup(ctx, tx, id)
}

// CreateTx inserts p and sets its generated id.
func (r *PickupRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.PickupRequest) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO pickup_requests (resident_id, zone_id, zone_name, requested_at, status,
		                             collector_id, points_awarded, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		p.ResidentID, p.ZoneID, p.ZoneName, toMillis(p.RequestedAt), string(p.Status),
		p.CollectorID, toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// UpdateStatusTx writes the cached status, the collector and the award in
// one statement.
func (r *PickupRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.PickupStatus, collectorID *string, points int64, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE pickup_requests
		   SET status = ?, collector_id = ?, points_awarded = ?, updated_at = ?
		 WHERE id = ?`,
		string(status), collectorID, points, toMillis(now), id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// AssignTx sets the assigned collector without touching the status.
func (r *PickupRepo) AssignTx(ctx context.Context, tx *sql.Tx, id uint64, collectorID string, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE pickup_requests SET collector_id = ?, updated_at = ? WHERE id = ?`,
		collectorID, toMillis(now), id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *PickupRepo) list(ctx context.Context, where, order string, args ...any) ([]model.PickupRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+pickupColumns+" FROM pickup_requests WHERE "+where+" ORDER BY "+order, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PickupRequest
	for rows.Next() {
		p, err := scanPickup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListByResident returns the resident's requests, newest first.
func (r *PickupRepo) ListByResident(ctx context.Context, residentID string) ([]model.PickupRequest, error) {
	return r.list(ctx, "resident_id = ?", "created_at DESC, id DESC", residentID)
}

// ListByZone returns a zone's requests with PENDING ones first, then newest
// first.
func (r *PickupRepo) ListByZone(ctx context.Context, zoneID int64) ([]model.PickupRequest, error) {
	return r.list(ctx, "zone_id = ?",
		"CASE status WHEN 'PENDING' THEN 0 ELSE 1 END, created_at DESC, id DESC", zoneID)
}

// ListByCollector returns requests assigned to a collector, newest first.
func (r *PickupRepo) ListByCollector(ctx context.Context, collectorID string) ([]model.PickupRequest, error) {
	return r.list(ctx, "collector_id = ?", "updated_at DESC, id DESC", collectorID)
}
