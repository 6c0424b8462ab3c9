package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/iliyamo/smart-waste/internal/model"
	"github.com/iliyamo/smart-waste/internal/repository"
	"github.com/iliyamo/smart-waste/internal/utils"
)

// Identity is the registry of user accounts and their credentials.
type Identity struct {
	db    repository.Session
	users *repository.UserRepo
	zones *repository.ZoneRepo
	opts  Options
	log   *slog.Logger
}

func NewIdentity(db repository.Session, opts Options) *Identity {
	opts = opts.withDefaults()
	return &Identity{
		db:    db,
		users: repository.NewUserRepo(db),
		zones: repository.NewZoneRepo(db),
		opts:  opts,
		log:   opts.Log.With("component", "identity"),
	}
}

// normalizeLoginID is applied wherever a login id enters the service.
func normalizeLoginID(id string) string {
	return strings.TrimSpace(id)
}

// CreatePending registers a bare Resident holding only a login id and a
// credential.  The profile is supplied later through CompleteProfile.
func (s *Identity) CreatePending(ctx context.Context, loginID, password string) error {
	loginID = normalizeLoginID(loginID)
	if loginID == "" || password == "" {
		return invalid("login id and password are required")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fail("create pending", err)
	}
	if err := s.users.CreatePending(ctx, loginID, hash, s.opts.now()); err != nil {
		if errors.Is(err, repository.ErrLoginExists) {
			return ErrDuplicateIdentity
		}
		return fail("create pending", err)
	}
	s.log.Info("pending registration created", "login_id", loginID)
	return nil
}

// profileRole resolves the role a registration may end up with.  By default
// profile completion keeps Resident; with AllowRoleAtProfile a registrant
// may also pick WasteCollector.  MunicipalAdmin is never self-assigned.
func (s *Identity) profileRole(requested model.Role) (model.Role, error) {
	switch requested {
	case "", model.RoleResident:
		return model.RoleResident, nil
	case model.RoleWasteCollector:
		if s.opts.AllowRoleAtProfile {
			return model.RoleWasteCollector, nil
		}
	}
	return "", ErrUnauthorized
}

// CompleteProfile fills in the profile of a pending registration.  It fails
// with ErrSessionExpired when loginID has no pending row and with
// ErrDuplicateIdentity when the email already belongs to another user.
func (s *Identity) CompleteProfile(ctx context.Context, loginID string, p model.Profile) error {
	loginID = normalizeLoginID(loginID)
	role, err := s.profileRole(p.Role)
	if err != nil {
		return err
	}
	p.FullName = strings.TrimSpace(p.FullName)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.FullName == "" || p.Email == "" {
		return invalid("full name and email are required")
	}
	if p.ZoneID <= 0 {
		return ErrZoneRequired
	}

	err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		u, err := s.users.GetByLoginIDTx(ctx, tx, loginID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionExpired
		}
		if err != nil {
			return err
		}
		if u.ProfileCompleted {
			return ErrSessionExpired
		}
		owner, err := s.users.EmailOwnerTx(ctx, tx, p.Email)
		if err != nil {
			return err
		}
		if owner != "" && owner != loginID {
			return ErrDuplicateIdentity
		}
		if _, err := s.zones.GetByIDTx(ctx, tx, p.ZoneID); err != nil {
			return err
		}
		n, err := s.users.CompleteProfileTx(ctx, tx, loginID, p, role, s.opts.now())
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrSessionExpired
		}
		return nil
	})
	if err != nil {
		return fail("complete profile", err)
	}
	s.log.Info("profile completed", "login_id", loginID, "role", role)
	return nil
}

// VerifyCredentials authenticates loginID.  Failures are ErrNotFound for an
// unknown or deactivated account, ErrLocked while a lock window is open and
// *BadCredentialsError otherwise.  The attempt counter and lock survive
// restarts because they live on the user row.
func (s *Identity) VerifyCredentials(ctx context.Context, loginID, password string) (model.User, error) {
	loginID = normalizeLoginID(loginID)
	now := s.opts.now()
	var (
		user    model.User
		outcome error
		upgrade bool
	)
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		u, err := s.users.GetByLoginIDTx(ctx, tx, loginID)
		if errors.Is(err, repository.ErrNotFound) {
			outcome = ErrNotFound
			return nil
		}
		if err != nil {
			return err
		}
		if !u.IsActive {
			outcome = ErrNotFound
			return nil
		}
		if u.IsLocked(now) {
			outcome = ErrLocked
			return nil
		}

		ok, needsUpgrade := utils.VerifyPassword(u.PasswordHash, password)
		if ok {
			if u.FailedAttempts != 0 || u.LockedUntil != nil {
				if err := s.users.ResetLoginStateTx(ctx, tx, loginID, now); err != nil {
					return err
				}
				u.FailedAttempts, u.LockedUntil = 0, nil
			}
			user, upgrade = u, needsUpgrade
			return nil
		}

		attempts := u.FailedAttempts
		if u.LockedUntil != nil {
			// an expired lock starts a fresh series
			attempts = 0
		}
		attempts++
		threshold := s.opts.Lockout.Threshold
		if attempts >= threshold {
			until := now.Add(s.opts.Lockout.Cooldown)
			if err := s.users.SetLoginFailureTx(ctx, tx, loginID, attempts, &until, now); err != nil {
				return err
			}
			s.log.Warn("account locked", "login_id", loginID, "until", until)
			outcome = &BadCredentialsError{AttemptsRemaining: 0}
			return nil
		}
		if err := s.users.SetLoginFailureTx(ctx, tx, loginID, attempts, nil, now); err != nil {
			return err
		}
		outcome = &BadCredentialsError{AttemptsRemaining: threshold - attempts}
		return nil
	})
	if err != nil {
		return model.User{}, fail("verify credentials", err)
	}
	if outcome != nil {
		return model.User{}, outcome
	}
	if upgrade {
		s.upgradeCredential(ctx, &user, password)
	}
	return user, nil
}

// upgradeCredential replaces a legacy credential with a salted one.  It is
// best effort: a failure is logged and the login still succeeds.
func (s *Identity) upgradeCredential(ctx context.Context, u *model.User, password string) {
	hash, err := utils.HashPassword(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, u.LoginID, hash, s.opts.now())
	}
	if err != nil {
		s.log.Warn("credential upgrade failed", "login_id", u.LoginID, "err", err)
		return
	}
	u.PasswordHash = hash
	s.log.Info("legacy credential upgraded", "login_id", u.LoginID)
}

// CreateStaff creates a collector or administrator account.  Only an active
// MunicipalAdmin may call it.
func (s *Identity) CreateStaff(ctx context.Context, admin Actor, acct model.StaffAccount) error {
	if _, err := authorize(ctx, s.users, nil, admin, model.RoleMunicipalAdmin); err != nil {
		return fail("create staff", err)
	}
	acct.LoginID = normalizeLoginID(acct.LoginID)
	if acct.LoginID == "" || acct.Password == "" {
		return invalid("login id and password are required")
	}
	if acct.Role != model.RoleWasteCollector && acct.Role != model.RoleMunicipalAdmin {
		return invalid("staff role must be WasteCollector or MunicipalAdmin")
	}
	hash, err := utils.HashPassword(acct.Password)
	if err != nil {
		return fail("create staff", err)
	}
	u := model.User{
		LoginID:      acct.LoginID,
		PasswordHash: hash,
		Role:         acct.Role,
		ZoneID:       acct.ZoneID,
		FullName:     optional(acct.FullName),
		Telephone:    optional(acct.Telephone),
		Email:        optional(strings.ToLower(strings.TrimSpace(acct.Email))),
		CreatedAt:    s.opts.now(),
	}
	err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if acct.ZoneID != nil {
			if _, err := s.zones.GetByIDTx(ctx, tx, *acct.ZoneID); err != nil {
				return err
			}
		}
		return s.users.CreateTx(ctx, tx, u)
	})
	if err != nil {
		return fail("create staff", err)
	}
	s.log.Info("staff account created", "login_id", acct.LoginID, "role", acct.Role, "by", admin.LoginID)
	return nil
}

// UpdateUser applies a partial update.  Admin only.
func (s *Identity) UpdateUser(ctx context.Context, admin Actor, loginID string, upd model.UserUpdate) error {
	if _, err := authorize(ctx, s.users, nil, admin, model.RoleMunicipalAdmin); err != nil {
		return fail("update user", err)
	}
	if upd.Role != nil && !upd.Role.Valid() {
		return invalid("unknown role %q", *upd.Role)
	}
	if upd.IsActive != nil && !*upd.IsActive && loginID == admin.LoginID {
		return ErrConflict
	}
	var hash string
	if upd.Password != nil {
		h, err := utils.HashPassword(*upd.Password)
		if err != nil {
			return invalid("password: %v", err)
		}
		hash = h
	}
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if upd.ZoneID != nil && !upd.ClearZone {
			if _, err := s.zones.GetByIDTx(ctx, tx, *upd.ZoneID); err != nil {
				return err
			}
		}
		return s.users.UpdateTx(ctx, tx, loginID, upd, hash, s.opts.now())
	})
	if err != nil {
		return fail("update user", err)
	}
	s.opts.Cache.Invalidate(ctx)
	s.log.Info("user updated", "login_id", loginID, "by", admin.LoginID)
	return nil
}

// DeactivateUser clears the active flag; the account can no longer log in.
func (s *Identity) DeactivateUser(ctx context.Context, admin Actor, loginID string) error {
	inactive := false
	return s.UpdateUser(ctx, admin, loginID, model.UserUpdate{IsActive: &inactive})
}

// DeleteUser removes an account together with its pickups, status history,
// recycling logs and notifications, in one transaction.  Pickups the user
// was assigned to and status rows the user authored elsewhere survive with
// the reference cleared.  Admins cannot delete themselves.
func (s *Identity) DeleteUser(ctx context.Context, admin Actor, loginID string) error {
	if _, err := authorize(ctx, s.users, nil, admin, model.RoleMunicipalAdmin); err != nil {
		return fail("delete user", err)
	}
	if loginID == admin.LoginID {
		return ErrConflict
	}
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.users.DeleteCascadeTx(ctx, tx, loginID)
	})
	if err != nil {
		return fail("delete user", err)
	}
	s.opts.Cache.Invalidate(ctx)
	s.log.Info("user deleted", "login_id", loginID, "by", admin.LoginID)
	return nil
}

// GetUser returns an account.  Users may read themselves; admins anyone.
func (s *Identity) GetUser(ctx context.Context, actor Actor, loginID string) (model.User, error) {
	u, err := authorize(ctx, s.users, nil, actor)
	if err != nil {
		return model.User{}, fail("get user", err)
	}
	if u.LoginID != loginID && u.Role != model.RoleMunicipalAdmin {
		return model.User{}, ErrUnauthorized
	}
	if u.LoginID == loginID {
		return u, nil
	}
	out, err := s.users.GetByLoginID(ctx, loginID)
	return out, fail("get user", err)
}

// ListUsers lists accounts, optionally filtered by role.  Admin only.
func (s *Identity) ListUsers(ctx context.Context, admin Actor, role model.Role) ([]model.User, error) {
	if _, err := authorize(ctx, s.users, nil, admin, model.RoleMunicipalAdmin); err != nil {
		return nil, fail("list users", err)
	}
	out, err := s.users.List(ctx, role)
	return out, fail("list users", err)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
