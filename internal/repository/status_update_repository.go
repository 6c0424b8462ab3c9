package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/smart-waste/internal/model"
)

// StatusUpdateRepo is the append-only pickup status ledger.  It exposes no
// update or delete; rows only disappear when their pickup is removed with
// its resident.
type StatusUpdateRepo struct{ db Session }

func NewStatusUpdateRepo(db Session) *StatusUpdateRepo { return &StatusUpdateRepo{db: db} }

// AppendTx inserts u and sets its generated id.
func (r *StatusUpdateRepo) AppendTx(ctx context.Context, tx *sql.Tx, u *model.PickupStatusUpdate) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO pickup_status_updates (pickup_id, actor_id, new_status, comment, evidence_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.PickupID, u.ActorID, string(u.NewStatus), u.Comment, u.EvidenceRef, toMillis(u.CreatedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// ListByPickup returns the ledger of one pickup in timestamp order.  Rows
// with equal timestamps keep insertion order.
func (r *StatusUpdateRepo) ListByPickup(ctx context.Context, pickupID uint64) ([]model.PickupStatusUpdate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pickup_id, actor_id, new_status, comment, evidence_ref, created_at
		  FROM pickup_status_updates
		 WHERE pickup_id = ?
		 ORDER BY created_at, id`, pickupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PickupStatusUpdate
	for rows.Next() {
		var (
			u              model.PickupStatusUpdate
			actor, comment sql.NullString
			evidence       sql.NullString
			status         string
			created        int64
		)
		if err := rows.Scan(&u.ID, &u.PickupID, &actor, &status, &comment, &evidence, &created); err != nil {
			return nil, err
		}
		u.ActorID = strPtr(actor)
		u.NewStatus = model.PickupStatus(status)
		u.Comment = strPtr(comment)
		u.EvidenceRef = strPtr(evidence)
		u.CreatedAt = fromMillis(created)
		out = append(out, u)
	}
	return out, rows.Err()
}
