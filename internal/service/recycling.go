package service

import (
	"context"
	"database/sql"
	"log/slog"
	"math"
	"time"

	"github.com/iliyamo/smart-waste/internal/model"
	"github.com/iliyamo/smart-waste/internal/repository"
)

// pointsLedger records a recycling entry and credits the resident's balance.
// It only runs inside a caller-owned transaction.
type pointsLedger struct {
	users *repository.UserRepo
	logs  *repository.RecyclingLogRepo
}

func newPointsLedger(db repository.Session) pointsLedger {
	return pointsLedger{users: repository.NewUserRepo(db), logs: repository.NewRecyclingLogRepo(db)}
}

func validateEntry(e model.RecyclingEntry) error {
	if _, err := model.ParseCategory(string(e.Category)); err != nil {
		return invalid("%v", err)
	}
	if !(e.WeightKg > 0) || math.IsInf(e.WeightKg, 0) {
		return invalid("weight must be positive")
	}
	return nil
}

// awardTx freezes the points for e, stores the log and adds the points to
// the resident.  The log row and the balance change commit together.
func (l pointsLedger) awardTx(ctx context.Context, tx *sql.Tx, residentID string, pickupID *uint64, e model.RecyclingEntry, now time.Time) (model.RecyclingLog, error) {
	cat, _ := model.ParseCategory(string(e.Category))
	rec := model.RecyclingLog{
		ResidentID: residentID,
		PickupID:   pickupID,
		Category:   cat,
		WeightKg:   e.WeightKg,
		Points:     cat.Points(e.WeightKg),
		ImageRef:   optional(e.ImageRef),
		LoggedAt:   now,
	}
	if err := l.logs.CreateTx(ctx, tx, &rec); err != nil {
		return model.RecyclingLog{}, err
	}
	if rec.Points > 0 {
		if err := l.users.AddPointsTx(ctx, tx, residentID, rec.Points, now); err != nil {
			return model.RecyclingLog{}, err
		}
	}
	return rec, nil
}

// Recycling lets residents log recycled waste outside a pickup.
type Recycling struct {
	db     repository.Session
	users  *repository.UserRepo
	logs   *repository.RecyclingLogRepo
	ledger pointsLedger
	opts   Options
	log    *slog.Logger
}

func NewRecycling(db repository.Session, opts Options) *Recycling {
	opts = opts.withDefaults()
	return &Recycling{
		db:     db,
		users:  repository.NewUserRepo(db),
		logs:   repository.NewRecyclingLogRepo(db),
		ledger: newPointsLedger(db),
		opts:   opts,
		log:    opts.Log.With("component", "recycling"),
	}
}

// LogRecycling records an entry for the calling resident and credits
// floor(weight * multiplier) points in the same transaction.
func (s *Recycling) LogRecycling(ctx context.Context, resident Actor, e model.RecyclingEntry) (model.RecyclingLog, error) {
	if err := validateEntry(e); err != nil {
		return model.RecyclingLog{}, err
	}
	var rec model.RecyclingLog
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		u, err := authorize(ctx, s.users, tx, resident, model.RoleResident)
		if err != nil {
			return err
		}
		rec, err = s.ledger.awardTx(ctx, tx, u.LoginID, nil, e, s.opts.now())
		return err
	})
	if err != nil {
		return model.RecyclingLog{}, fail("log recycling", err)
	}
	s.opts.Cache.Invalidate(ctx)
	s.log.Info("recycling logged", "login_id", rec.ResidentID, "category", rec.Category, "points", rec.Points)
	return rec, nil
}

// History returns a resident's recycling logs, newest first.
func (s *Recycling) History(ctx context.Context, residentID string) ([]model.RecyclingLog, error) {
	out, err := s.logs.ListByResident(ctx, residentID)
	return out, fail("recycling history", err)
}
