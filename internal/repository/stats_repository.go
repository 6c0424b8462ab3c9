package repository

import (
	"context"

	"github.com/iliyamo/smart-waste/internal/model"
)

// StatsRepo serves the read-only aggregates behind dashboards.
type StatsRepo struct{ db Session }

func NewStatsRepo(db Session) *StatsRepo { return &StatsRepo{db: db} }

// Leaderboard ranks active residents by points; ties are broken by login id.
func (r *StatsRepo) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT login_id, COALESCE(full_name, login_id), total_points
		  FROM users
		 WHERE role = ? AND is_active = 1
		 ORDER BY total_points DESC, login_id
		 LIMIT ?`, string(model.RoleResident), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.LoginID, &e.FullName, &e.Points); err != nil {
			return nil, err
		}
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}

// Overview counts rows in the main tables.
func (r *StatsRepo) Overview(ctx context.Context) (model.Overview, error) {
	var o model.Overview
	err := r.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM users),
		       (SELECT COUNT(*) FROM pickup_requests),
		       (SELECT COUNT(*) FROM recycling_logs),
		       (SELECT COUNT(*) FROM notifications)`).Scan(
		&o.Users, &o.PickupRequests, &o.RecyclingLogs, &o.Notifications)
	return o, err
}

// CollectorMetrics counts the collector's finished work and the open
// requests in zoneID.
func (r *StatsRepo) CollectorMetrics(ctx context.Context, collectorID string, zoneID int64) (model.CollectorMetrics, error) {
	var m model.CollectorMetrics
	err := r.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM pickup_requests WHERE collector_id = ? AND status = 'COMPLETED'),
		       (SELECT COUNT(*) FROM pickup_requests WHERE collector_id = ? AND status = 'FAILED'),
		       (SELECT COUNT(*) FROM pickup_requests
		         WHERE zone_id = ? AND status IN ('PENDING', 'ACCEPTED', 'IN_PROGRESS'))`,
		collectorID, collectorID, zoneID).Scan(&m.Completed, &m.Failed, &m.Open)
	return m, err
}
