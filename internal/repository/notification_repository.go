package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/smart-waste/internal/model"
)

// NotificationRepo stores per-user notifications.  Only read_at changes
// after insert.
type NotificationRepo struct{ db Session }

func NewNotificationRepo(db Session) *NotificationRepo { return &NotificationRepo{db: db} }

// AddTx inserts one notification for userID.
func (r *NotificationRepo) AddTx(ctx context.Context, tx *sql.Tx, userID string, typ model.NotificationType, title, message string, now time.Time) (uint64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO notifications (user_id, type, title, message, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		userID, string(typ), title, message, toMillis(now))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListByUser returns a user's notifications, newest first.  unreadOnly
// filters out read ones.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	q := `SELECT id, user_id, type, title, message, created_at, read_at
	        FROM notifications WHERE user_id = ?`
	if unreadOnly {
		q += ` AND read_at IS NULL`
	}
	q += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var (
			n       model.Notification
			typ     string
			created int64
			read    sql.NullInt64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &created, &read); err != nil {
			return nil, err
		}
		n.Type = model.NotificationType(typ)
		n.CreatedAt = fromMillis(created)
		n.ReadAt = timePtr(read)
		out = append(out, n)
	}
	return out, rows.Err()
}

// UnreadCount returns how many notifications userID has not read.
func (r *NotificationRepo) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read_at IS NULL`, userID).Scan(&n)
	return n, err
}

// MarkRead stamps read_at on a notification owned by userID.  Marking an
// already-read notification keeps the first timestamp.  A notification that
// does not exist or belongs to someone else yields ErrNotFound.
func (r *NotificationRepo) MarkRead(ctx context.Context, id uint64, userID string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read_at = COALESCE(read_at, ?)
		 WHERE id = ? AND user_id = ?`, toMillis(now), id, userID)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}
