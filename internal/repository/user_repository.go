package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/smart-waste/internal/model"
)

// UserRepo reads and writes the `users` table.
type UserRepo struct{ db Session }

func NewUserRepo(db Session) *UserRepo { return &UserRepo{db: db} }

const userColumns = `u.login_id, u.password_hash, u.role, u.zone_id, z.name, u.full_name, u.id_no,
	u.telephone, u.email, u.address, u.total_points, u.failed_attempts, u.locked_until,
	u.is_active, u.profile_completed, u.created_at, u.updated_at`

const userFrom = ` FROM users u LEFT JOIN zones z ON z.id = u.zone_id`

func scanUser(s rowScanner) (model.User, error) {
	var (
		u                   model.User
		role                string
		zoneID, lockedUntil sql.NullInt64
		zoneName, fullName  sql.NullString
		idNo, tel, email    sql.NullString
		addr                sql.NullString
		active, completed   bool
		created, updated    int64
	)
	if err := s.Scan(&u.LoginID, &u.PasswordHash, &role, &zoneID, &zoneName, &fullName, &idNo,
		&tel, &email, &addr, &u.TotalPoints, &u.FailedAttempts, &lockedUntil,
		&active, &completed, &created, &updated); err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	u.ZoneID = int64Ptr(zoneID)
	u.ZoneName = strPtr(zoneName)
	u.FullName = strPtr(fullName)
	u.IDNo = strPtr(idNo)
	u.Telephone = strPtr(tel)
	u.Email = strPtr(email)
	u.Address = strPtr(addr)
	u.LockedUntil = timePtr(lockedUntil)
	u.IsActive = active
	u.ProfileCompleted = completed
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return u, nil
}

func getUser(ctx context.Context, q Querier, loginID string) (model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		"SELECT "+userColumns+userFrom+" WHERE u.login_id = ? LIMIT 1", loginID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByLoginID fetches a user by login id.  Deactivated users are returned;
// callers decide how to treat them.
func (r *UserRepo) GetByLoginID(ctx context.Context, loginID string) (model.User, error) {
	return getUser(ctx, r.db, loginID)
}

// GetByLoginIDTx is GetByLoginID inside the caller's transaction.
func (r *UserRepo) GetByLoginIDTx(ctx context.Context, tx *sql.Tx, loginID string) (model.User, error) {
	return getUser(ctx, tx, loginID)
}

// CreatePending inserts a bare Resident row holding only the login id and
// credential.  The profile is filled in later by CompleteProfileTx.
func (r *UserRepo) CreatePending(ctx context.Context, loginID, passwordHash string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (login_id, password_hash, role, profile_completed, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)`,
		loginID, passwordHash, string(model.RoleResident), toMillis(now), toMillis(now))
	return mapUserWriteErr(err)
}

// CreateTx inserts a fully-formed account.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, u model.User) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (login_id, password_hash, role, zone_id, full_name, telephone, email,
		                   is_active, profile_completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, 1, ?, ?)`,
		u.LoginID, u.PasswordHash, string(u.Role), u.ZoneID, u.FullName, u.Telephone, u.Email,
		toMillis(u.CreatedAt), toMillis(u.CreatedAt))
	return mapUserWriteErr(err)
}

// CompleteProfileTx fills the profile of a pending registration.  It
// returns the number of rows updated: zero means no pending row matched.
func (r *UserRepo) CompleteProfileTx(ctx context.Context, tx *sql.Tx, loginID string, p model.Profile, role model.Role, now time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		   SET full_name = ?, id_no = ?, telephone = ?, email = ?, address = ?, zone_id = ?,
		       role = ?, profile_completed = 1, updated_at = ?
		 WHERE login_id = ? AND profile_completed = 0`,
		nullStr(p.FullName), nullStr(p.IDNo), nullStr(p.Telephone), nullStr(strings.ToLower(p.Email)),
		nullStr(p.Address), p.ZoneID, string(role), toMillis(now), loginID)
	if err != nil {
		return 0, mapUserWriteErr(err)
	}
	return res.RowsAffected()
}

// EmailOwnerTx returns the login id owning email, or "" when unused.
func (r *UserRepo) EmailOwnerTx(ctx context.Context, tx *sql.Tx, email string) (string, error) {
	var owner string
	err := tx.QueryRowContext(ctx, `SELECT login_id FROM users WHERE email = ? LIMIT 1`,
		strings.ToLower(email)).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return owner, err
}

// SetLoginFailureTx stores the failed-attempt counter and lock expiry.
func (r *UserRepo) SetLoginFailureTx(ctx context.Context, tx *sql.Tx, loginID string, attempts int, lockedUntil *time.Time, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET failed_attempts = ?, locked_until = ?, updated_at = ? WHERE login_id = ?`,
		attempts, nullMillis(lockedUntil), toMillis(now), loginID)
	return err
}

// ResetLoginStateTx clears the failure counter and lock after a successful login.
func (r *UserRepo) ResetLoginStateTx(ctx context.Context, tx *sql.Tx, loginID string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET failed_attempts = 0, locked_until = NULL, updated_at = ? WHERE login_id = ?`,
		toMillis(now), loginID)
	return err
}

// UpdatePasswordHash replaces the stored credential.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, loginID, hash string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE login_id = ?`,
		hash, toMillis(now), loginID)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// AddPointsTx adjusts the points balance by delta.
func (r *UserRepo) AddPointsTx(ctx context.Context, tx *sql.Tx, loginID string, delta int64, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET total_points = total_points + ?, updated_at = ? WHERE login_id = ?`,
		delta, toMillis(now), loginID)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// UpdateTx applies the non-nil fields of upd.  passwordHash replaces the
// credential when non-empty.
func (r *UserRepo) UpdateTx(ctx context.Context, tx *sql.Tx, loginID string, upd model.UserUpdate, passwordHash string, now time.Time) error {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.FullName != nil {
		add("full_name", nullStr(*upd.FullName))
	}
	if passwordHash != "" {
		add("password_hash", passwordHash)
	}
	if upd.Role != nil {
		add("role", string(*upd.Role))
	}
	if upd.ClearZone {
		add("zone_id", nil)
	} else if upd.ZoneID != nil {
		add("zone_id", *upd.ZoneID)
	}
	if upd.Telephone != nil {
		add("telephone", nullStr(*upd.Telephone))
	}
	if upd.Email != nil {
		add("email", nullStr(strings.ToLower(*upd.Email)))
	}
	if upd.Address != nil {
		add("address", nullStr(*upd.Address))
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	add("updated_at", toMillis(now))
	args = append(args, loginID)

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE login_id = ?", args...)
	if err != nil {
		return mapUserWriteErr(err)
	}
	return requireOneRow(res)
}

// List returns users ordered by role then login id.  An empty role lists all.
func (r *UserRepo) List(ctx context.Context, role model.Role) ([]model.User, error) {
	q := "SELECT " + userColumns + userFrom
	var args []any
	if role != "" {
		q += " WHERE u.role = ?"
		args = append(args, string(role))
	}
	q += " ORDER BY u.role, u.login_id"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ActiveLoginIDsTx lists active accounts, optionally filtered by role.
func (r *UserRepo) ActiveLoginIDsTx(ctx context.Context, tx *sql.Tx, role model.Role) ([]string, error) {
	q := `SELECT login_id FROM users WHERE is_active = 1`
	var args []any
	if role != "" {
		q += ` AND role = ?`
		args = append(args, string(role))
	}
	q += ` ORDER BY login_id`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteCascadeTx removes a user and everything it owns.  Pickups assigned
// to the user lose their collector and status rows the user authored on
// other residents' pickups lose their actor; both survive.
func (r *UserRepo) DeleteCascadeTx(ctx context.Context, tx *sql.Tx, loginID string) error {
	steps := []string{
		`DELETE FROM pickup_status_updates
		  WHERE pickup_id IN (SELECT id FROM pickup_requests WHERE resident_id = ?)`,
		`DELETE FROM recycling_logs WHERE resident_id = ?`,
		`UPDATE recycling_logs SET pickup_id = NULL
		  WHERE pickup_id IN (SELECT id FROM pickup_requests WHERE resident_id = ?)`,
		`DELETE FROM pickup_requests WHERE resident_id = ?`,
		`UPDATE pickup_requests SET collector_id = NULL WHERE collector_id = ?`,
		`UPDATE pickup_status_updates SET actor_id = NULL WHERE actor_id = ?`,
		`DELETE FROM notifications WHERE user_id = ?`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, loginID); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE login_id = ?`, loginID)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
