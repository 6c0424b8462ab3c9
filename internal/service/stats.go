package service

import (
	"context"

	"github.com/iliyamo/smart-waste/internal/model"
	"github.com/iliyamo/smart-waste/internal/repository"
)

// Stats serves the read models shown on dashboards.
type Stats struct {
	users *repository.UserRepo
	stats *repository.StatsRepo
	opts  Options
}

func NewStats(db repository.Session, opts Options) *Stats {
	opts = opts.withDefaults()
	return &Stats{users: repository.NewUserRepo(db), stats: repository.NewStatsRepo(db), opts: opts}
}

// Leaderboard ranks active residents by points.  Results are served from
// the cache when one is configured.
func (s *Stats) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if cached, ok := s.opts.Cache.Get(ctx, limit); ok {
		return cached, nil
	}
	out, err := s.stats.Leaderboard(ctx, limit)
	if err != nil {
		return nil, fail("leaderboard", err)
	}
	s.opts.Cache.Set(ctx, limit, out)
	return out, nil
}

// Overview counts the main tables.  Admin only.
func (s *Stats) Overview(ctx context.Context, admin Actor) (model.Overview, error) {
	if _, err := authorize(ctx, s.users, nil, admin, model.RoleMunicipalAdmin); err != nil {
		return model.Overview{}, fail("overview", err)
	}
	o, err := s.stats.Overview(ctx)
	return o, fail("overview", err)
}

// CollectorMetrics summarises the calling collector's work and the open
// requests in their zone.
func (s *Stats) CollectorMetrics(ctx context.Context, collector Actor) (model.CollectorMetrics, error) {
	u, err := authorize(ctx, s.users, nil, collector, model.RoleWasteCollector)
	if err != nil {
		return model.CollectorMetrics{}, fail("collector metrics", err)
	}
	var zone int64
	if u.ZoneID != nil {
		zone = *u.ZoneID
	}
	m, err := s.stats.CollectorMetrics(ctx, u.LoginID, zone)
	return m, fail("collector metrics", err)
}
