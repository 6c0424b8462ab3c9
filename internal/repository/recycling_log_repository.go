package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/smart-waste/internal/model"
)

// RecyclingLogRepo stores recycling entries.  Points are written once at
// insert time and never recomputed.
type RecyclingLogRepo struct{ db Session }

func NewRecyclingLogRepo(db Session) *RecyclingLogRepo { return &RecyclingLogRepo{db: db} }

// CreateTx inserts l and sets its generated id.
func (r *RecyclingLogRepo) CreateTx(ctx context.Context, tx *sql.Tx, l *model.RecyclingLog) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO recycling_logs (resident_id, pickup_id, category, weight_kg, points, image_ref, logged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ResidentID, l.PickupID, string(l.Category), l.WeightKg, l.Points, l.ImageRef, toMillis(l.LoggedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// ListByResident returns a resident's logs, newest first.
func (r *RecyclingLogRepo) ListByResident(ctx context.Context, residentID string) ([]model.RecyclingLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, resident_id, pickup_id, category, weight_kg, points, image_ref, logged_at
		  FROM recycling_logs
		 WHERE resident_id = ?
		 ORDER BY logged_at DESC, id DESC`, residentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RecyclingLog
	for rows.Next() {
		var (
			l        model.RecyclingLog
			pickup   sql.NullInt64
			category string
			image    sql.NullString
			logged   int64
		)
		if err := rows.Scan(&l.ID, &l.ResidentID, &pickup, &category, &l.WeightKg, &l.Points, &image, &logged); err != nil {
			return nil, err
		}
		if pickup.Valid {
			id := uint64(pickup.Int64)
			l.PickupID = &id
		}
		l.Category = model.WasteCategory(category)
		l.ImageRef = strPtr(image)
		l.LoggedAt = fromMillis(logged)
		out = append(out, l)
	}
	return out, rows.Err()
}
