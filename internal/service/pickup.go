package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/smart-waste/internal/model"
	"github.com/iliyamo/smart-waste/internal/queue"
	"github.com/iliyamo/smart-waste/internal/repository"
)

// Pickups is the pickup lifecycle engine.  A request's status only changes
// through Transition, which writes the ledger row, the cached status, any
// points award and the notifications in one transaction.
type Pickups struct {
	db      repository.Session
	users   *repository.UserRepo
	zones   *repository.ZoneRepo
	pickups *repository.PickupRepo
	ledger  *repository.StatusUpdateRepo
	points  pointsLedger
	sink    NotificationSink
	opts    Options
	log     *slog.Logger
}

func NewPickups(db repository.Session, sink NotificationSink, opts Options) *Pickups {
	opts = opts.withDefaults()
	return &Pickups{
		db:      db,
		users:   repository.NewUserRepo(db),
		zones:   repository.NewZoneRepo(db),
		pickups: repository.NewPickupRepo(db),
		ledger:  repository.NewStatusUpdateRepo(db),
		points:  newPointsLedger(db),
		sink:    sink,
		opts:    opts,
		log:     opts.Log.With("component", "pickups"),
	}
}

// validateRequestTime checks the lead time and the service window.  The
// window is evaluated in the configured location; the closing hour is
// exclusive.
func (s *Pickups) validateRequestTime(now, at time.Time) error {
	cfg := s.opts.Pickup
	if !at.After(now.Add(cfg.MinLead)) {
		return invalid("pickup must be at least %s in the future", cfg.MinLead)
	}
	local := at.In(cfg.Location)
	minute := local.Hour()*60 + local.Minute()
	if minute < cfg.WindowStart*60 || minute >= cfg.WindowEnd*60 {
		return invalid("pickup must be between %02d:00 and %02d:00", cfg.WindowStart, cfg.WindowEnd)
	}
	if local.Minute()%cfg.SlotMinutes != 0 || local.Second() != 0 || local.Nanosecond() != 0 {
		return invalid("pickup must start on a %d-minute slot", cfg.SlotMinutes)
	}
	return nil
}

// CreateRequest books a pickup for the calling resident in the resident's
// current zone.  The zone name is copied onto the request.  The request
// starts PENDING with one ledger row and the resident is notified.
func (s *Pickups) CreateRequest(ctx context.Context, resident Actor, requestedAt time.Time) (uint64, error) {
	now := s.opts.now()
	var p model.PickupRequest
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		u, err := authorize(ctx, s.users, tx, resident, model.RoleResident)
		if err != nil {
			return err
		}
		if u.ZoneID == nil {
			return ErrZoneRequired
		}
		if err := s.validateRequestTime(now, requestedAt); err != nil {
			return err
		}
		zone, err := s.zones.GetByIDTx(ctx, tx, *u.ZoneID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrZoneRequired
		}
		if err != nil {
			return err
		}

		p = model.PickupRequest{
			ResidentID:  u.LoginID,
			ZoneID:      zone.ID,
			ZoneName:    zone.Name,
			RequestedAt: requestedAt.UTC().Truncate(time.Millisecond),
			Status:      model.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.pickups.CreateTx(ctx, tx, &p); err != nil {
			return err
		}
		actor := u.LoginID
		if err := s.ledger.AppendTx(ctx, tx, &model.PickupStatusUpdate{
			PickupID:  p.ID,
			ActorID:   &actor,
			NewStatus: model.StatusPending,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		return s.sink.Add(ctx, tx, u.LoginID, model.NotifyPickupSubmitted,
			"Pickup submitted",
			fmt.Sprintf("Your pickup request #%d for %s on %s was submitted.",
				p.ID, zone.Name, requestedAt.In(s.opts.Pickup.Location).Format("2006-01-02 15:04")))
	})
	if err != nil {
		return 0, fail("create pickup", err)
	}
	s.log.Info("pickup created", "pickup_id", p.ID, "resident", p.ResidentID, "zone", p.ZoneName)
	return p.ID, nil
}

// TransitionInput is one status change.  Recycling is only accepted with
// StatusCompleted; when present its points are awarded with the change.
type TransitionInput struct {
	PickupID  uint64
	NewStatus model.PickupStatus
	Comment   string
	Evidence  string
	Recycling *model.RecyclingEntry
}

// checkActor decides whether u may move p to next.  Residents may only
// cancel their own request.  Collectors act on requests assigned to them,
// or on unassigned requests in their zone, and never cancel.
func checkActor(u model.User, p model.PickupRequest, next model.PickupStatus) error {
	switch u.Role {
	case model.RoleResident:
		if p.ResidentID != u.LoginID || next != model.StatusCancelled {
			return ErrUnauthorized
		}
		return nil
	case model.RoleWasteCollector:
		if next == model.StatusCancelled {
			return ErrUnauthorized
		}
		if p.CollectorID != nil {
			if *p.CollectorID != u.LoginID {
				return ErrUnauthorized
			}
			return nil
		}
		if u.ZoneID == nil || *u.ZoneID != p.ZoneID {
			return ErrUnauthorized
		}
		return nil
	}
	return ErrUnauthorized
}

// Transition moves a pickup to in.NewStatus on behalf of actor.  Checks run
// in order: the pickup exists, the actor is an active account, the pickup is
// not terminal, the actor may act on it, the edge is legal, and
// FAILED/CANCELLED carry a reason.  A collector acting on an
// unassigned request claims it.
func (s *Pickups) Transition(ctx context.Context, actor Actor, in TransitionInput) (model.PickupRequest, error) {
	next, err := model.ParsePickupStatus(string(in.NewStatus))
	if err != nil {
		return model.PickupRequest{}, invalid("%v", err)
	}
	if in.Recycling != nil {
		if next != model.StatusCompleted {
			return model.PickupRequest{}, invalid("recycling entry requires COMPLETED")
		}
		if err := validateEntry(*in.Recycling); err != nil {
			return model.PickupRequest{}, err
		}
	}
	comment := strings.TrimSpace(in.Comment)

	now := s.opts.now()
	var (
		before, after model.PickupRequest
		actorID       string
	)
	err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		p, err := s.pickups.GetByIDTx(ctx, tx, in.PickupID)
		if err != nil {
			return err
		}
		u, err := authorize(ctx, s.users, tx, actor)
		if err != nil {
			return err
		}
		if p.Status.Terminal() {
			return ErrInvalidTransition
		}
		if err := checkActor(u, p, next); err != nil {
			return err
		}
		if !p.Status.CanTransitionTo(next) {
			return ErrInvalidTransition
		}
		if next.NeedsReason() && len([]rune(comment)) < s.opts.Pickup.ReasonMinLen {
			return ErrReasonRequired
		}

		before, after, actorID = p, p, u.LoginID
		if u.Role == model.RoleWasteCollector && p.CollectorID == nil {
			after.CollectorID = &actorID
		}
		if next == model.StatusCompleted && in.Recycling != nil {
			pid := p.ID
			rec, err := s.points.awardTx(ctx, tx, p.ResidentID, &pid, *in.Recycling, now)
			if err != nil {
				return err
			}
			after.PointsAwarded = rec.Points
		}
		after.Status, after.UpdatedAt = next, now

		if err := s.ledger.AppendTx(ctx, tx, &model.PickupStatusUpdate{
			PickupID:    p.ID,
			ActorID:     &actorID,
			NewStatus:   next,
			Comment:     optional(comment),
			EvidenceRef: optional(in.Evidence),
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		if err := s.pickups.UpdateStatusTx(ctx, tx, p.ID, next, after.CollectorID, after.PointsAwarded, now); err != nil {
			return err
		}
		return s.notifyTransitionTx(ctx, tx, after, actorID, comment)
	})
	if err != nil {
		return model.PickupRequest{}, fail("transition pickup", err)
	}

	s.log.Info("pickup status changed", "pickup_id", after.ID, "from", before.Status, "to", after.Status,
		"actor", actorID, "points", after.PointsAwarded)
	if after.PointsAwarded > 0 {
		s.opts.Cache.Invalidate(ctx)
	}
	s.publish(ctx, before, after, actorID, comment)
	return after, nil
}

func (s *Pickups) notifyTransitionTx(ctx context.Context, tx *sql.Tx, p model.PickupRequest, actorID, comment string) error {
	msg := fmt.Sprintf("Your pickup request #%d is now %s.", p.ID, p.Status)
	if p.PointsAwarded > 0 {
		msg += fmt.Sprintf(" You earned %d points.", p.PointsAwarded)
	}
	if comment != "" {
		msg += " Note: " + comment
	}
	if err := s.sink.Add(ctx, tx, p.ResidentID, model.NotifyPickupStatus, "Pickup "+strings.ToLower(string(p.Status)), msg); err != nil {
		return err
	}
	if !s.opts.NotifyAdmins {
		return nil
	}
	admins, err := s.users.ActiveLoginIDsTx(ctx, tx, model.RoleMunicipalAdmin)
	if err != nil {
		return err
	}
	summary := fmt.Sprintf("Pickup #%d in %s set to %s by %s.", p.ID, p.ZoneName, p.Status, actorID)
	for _, id := range admins {
		if id == p.ResidentID {
			continue
		}
		if err := s.sink.Add(ctx, tx, id, model.NotifyAdminSummary, "Pickup status update", summary); err != nil {
			return err
		}
	}
	return nil
}

// publish emits the status change event.  It runs after commit and never
// fails the transition.
func (s *Pickups) publish(ctx context.Context, before, after model.PickupRequest, actorID, comment string) {
	ev := queue.PickupStatusChangedEvent{
		PickupID:      after.ID,
		ResidentID:    after.ResidentID,
		ZoneID:        after.ZoneID,
		ZoneName:      after.ZoneName,
		ActorID:       actorID,
		OldStatus:     string(before.Status),
		NewStatus:     string(after.Status),
		PointsAwarded: after.PointsAwarded,
		Comment:       comment,
		ChangedAt:     after.UpdatedAt,
	}
	if after.CollectorID != nil {
		ev.CollectorID = *after.CollectorID
	}
	if err := s.opts.Events.PublishStatusChanged(ctx, ev); err != nil {
		s.log.Warn("status event not published", "pickup_id", after.ID, "err", err)
	}
}

// Assign sets the collector for a pickup without changing its status.
// Admin only; the collector must be an active WasteCollector.
func (s *Pickups) Assign(ctx context.Context, admin Actor, pickupID uint64, collectorID string) error {
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := authorize(ctx, s.users, tx, admin, model.RoleMunicipalAdmin); err != nil {
			return err
		}
		p, err := s.pickups.GetByIDTx(ctx, tx, pickupID)
		if err != nil {
			return err
		}
		if p.Status.Terminal() {
			return ErrInvalidTransition
		}
		c, err := s.users.GetByLoginIDTx(ctx, tx, collectorID)
		if err != nil {
			return err
		}
		if !c.IsActive || c.Role != model.RoleWasteCollector {
			return invalid("%s is not an active collector", collectorID)
		}
		if err := s.pickups.AssignTx(ctx, tx, pickupID, collectorID, s.opts.now()); err != nil {
			return err
		}
		return s.sink.Add(ctx, tx, collectorID, model.NotifyPickupAssigned, "Pickup assigned",
			fmt.Sprintf("Pickup request #%d in %s was assigned to you.", p.ID, p.ZoneName))
	})
	if err != nil {
		return fail("assign pickup", err)
	}
	s.log.Info("pickup assigned", "pickup_id", pickupID, "collector", collectorID, "by", admin.LoginID)
	return nil
}

// Get returns one pickup request.
func (s *Pickups) Get(ctx context.Context, pickupID uint64) (model.PickupRequest, error) {
	p, err := s.pickups.GetByID(ctx, pickupID)
	return p, fail("get pickup", err)
}

// ListByResident returns a resident's requests, newest first.
func (s *Pickups) ListByResident(ctx context.Context, residentID string) ([]model.PickupRequest, error) {
	out, err := s.pickups.ListByResident(ctx, residentID)
	return out, fail("list pickups", err)
}

// ListByZone returns a zone's requests, PENDING first.
func (s *Pickups) ListByZone(ctx context.Context, zoneID int64) ([]model.PickupRequest, error) {
	out, err := s.pickups.ListByZone(ctx, zoneID)
	return out, fail("list pickups", err)
}

// ListByCollector returns requests assigned to collectorID.
func (s *Pickups) ListByCollector(ctx context.Context, collectorID string) ([]model.PickupRequest, error) {
	out, err := s.pickups.ListByCollector(ctx, collectorID)
	return out, fail("list pickups", err)
}

// StatusHistory returns the ledger of a pickup in timestamp order.
func (s *Pickups) StatusHistory(ctx context.Context, pickupID uint64) ([]model.PickupStatusUpdate, error) {
	if _, err := s.pickups.GetByID(ctx, pickupID); err != nil {
		return nil, fail("status history", err)
	}
	out, err := s.ledger.ListByPickup(ctx, pickupID)
	return out, fail("status history", err)
}
