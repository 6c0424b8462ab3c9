package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/iliyamo/smart-waste/internal/model"
	"github.com/iliyamo/smart-waste/internal/repository"
)

// NotificationSink is the single insert primitive the lifecycle engine
// writes notifications through.  It runs inside the caller's transaction so
// a notification never outlives a rolled-back change.
type NotificationSink interface {
	Add(ctx context.Context, tx *sql.Tx, userID string, typ model.NotificationType, title, message string) error
}

// Notifications stores and serves per-user notifications.
type Notifications struct {
	db    repository.Session
	repo  *repository.NotificationRepo
	users *repository.UserRepo
	opts  Options
	log   *slog.Logger
}

func NewNotifications(db repository.Session, opts Options) *Notifications {
	opts = opts.withDefaults()
	return &Notifications{
		db:    db,
		repo:  repository.NewNotificationRepo(db),
		users: repository.NewUserRepo(db),
		opts:  opts,
		log:   opts.Log.With("component", "notifications"),
	}
}

// Add implements NotificationSink.
func (s *Notifications) Add(ctx context.Context, tx *sql.Tx, userID string, typ model.NotificationType, title, message string) error {
	_, err := s.repo.AddTx(ctx, tx, userID, typ, title, message, s.opts.now())
	return err
}

// Send delivers a message from an admin to one active user.
func (s *Notifications) Send(ctx context.Context, admin Actor, userID, title, message string) error {
	title, message = strings.TrimSpace(title), strings.TrimSpace(message)
	if title == "" || message == "" {
		return invalid("title and message are required")
	}
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := authorize(ctx, s.users, tx, admin, model.RoleMunicipalAdmin); err != nil {
			return err
		}
		u, err := s.users.GetByLoginIDTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !u.IsActive {
			return ErrNotFound
		}
		return s.Add(ctx, tx, userID, model.NotifyAdminMessage, title, message)
	})
	return fail("send notification", err)
}

// Broadcast sends the same message to every active user holding role, or
// to every active user when role is empty.  It returns the recipient count.
func (s *Notifications) Broadcast(ctx context.Context, admin Actor, role model.Role, title, message string) (int, error) {
	title, message = strings.TrimSpace(title), strings.TrimSpace(message)
	if title == "" || message == "" {
		return 0, invalid("title and message are required")
	}
	if role != "" && !role.Valid() {
		return 0, invalid("unknown role %q", role)
	}
	var sent int
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := authorize(ctx, s.users, tx, admin, model.RoleMunicipalAdmin); err != nil {
			return err
		}
		ids, err := s.users.ActiveLoginIDsTx(ctx, tx, role)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := s.Add(ctx, tx, id, model.NotifyAdminMessage, title, message); err != nil {
				return err
			}
		}
		sent = len(ids)
		return nil
	})
	if err != nil {
		return 0, fail("broadcast", err)
	}
	s.log.Info("broadcast sent", "by", admin.LoginID, "role", role, "recipients", sent)
	return sent, nil
}

// List returns the actor's own notifications, newest first.
func (s *Notifications) List(ctx context.Context, actor Actor, unreadOnly bool) ([]model.Notification, error) {
	u, err := authorize(ctx, s.users, nil, actor)
	if err != nil {
		return nil, fail("list notifications", err)
	}
	out, err := s.repo.ListByUser(ctx, u.LoginID, unreadOnly)
	return out, fail("list notifications", err)
}

// UnreadCount returns how many of the actor's notifications are unread.
func (s *Notifications) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	u, err := authorize(ctx, s.users, nil, actor)
	if err != nil {
		return 0, fail("unread count", err)
	}
	n, err := s.repo.UnreadCount(ctx, u.LoginID)
	return n, fail("unread count", err)
}

// MarkRead marks one of the actor's notifications as read.  Repeating it is
// harmless; another user's notification yields ErrNotFound.
func (s *Notifications) MarkRead(ctx context.Context, actor Actor, id uint64) error {
	u, err := authorize(ctx, s.users, nil, actor)
	if err != nil {
		return fail("mark read", err)
	}
	return fail("mark read", s.repo.MarkRead(ctx, id, u.LoginID, s.opts.now()))
}
