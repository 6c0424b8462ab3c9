package model

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleResident       Role = "Resident"
	RoleWasteCollector Role = "WasteCollector"
	RoleMunicipalAdmin Role = "MunicipalAdmin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleResident, RoleWasteCollector, RoleMunicipalAdmin:
		return true
	}
	return false
}

// ParseRole converts a stored role string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User represents an application user record as stored in the `users`
// table.  The login id is the primary key and never changes.  A resident
// row is created in two phases: first with only LoginID and PasswordHash
// (ProfileCompleted=false), then completed with profile fields.
//
// Fields:
//
//	LoginID          - unique, immutable login identifier.
//	PasswordHash     - salted PBKDF2 credential ("salt_hex$digest_hex") or a legacy value.
//	Role             - Resident, WasteCollector or MunicipalAdmin.
//	ZoneID           - assigned zone, nil when unassigned.
//	FullName ... Address - optional profile fields.
//	TotalPoints      - non-negative points balance.
//	FailedAttempts   - consecutive failed logins.
//	LockedUntil      - lock expiry, nil when not locked.
//	IsActive         - false once deactivated by an admin.
//	ProfileCompleted - false for a pending registration.
type User struct {
	LoginID          string
	PasswordHash     string
	Role             Role
	ZoneID           *int64
	ZoneName         *string // joined from zones for listings; not stored on users
	FullName         *string
	IDNo             *string
	Telephone        *string
	Email            *string
	Address          *string
	TotalPoints      int64
	FailedAttempts   int
	LockedUntil      *time.Time
	IsActive         bool
	ProfileCompleted bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsLocked reports whether the lock window is still open at now.
func (u User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// Profile carries the fields supplied in the second registration step.
// Format validation (email shape, phone digits) is done by the caller.
type Profile struct {
	FullName  string
	IDNo      string
	Telephone string
	Email     string
	Address   string
	ZoneID    int64
	Role      Role // empty keeps Resident
}

// UserUpdate is a partial update applied by an admin.  Nil fields are left
// untouched; ClearZone sets the zone to NULL.
type UserUpdate struct {
	FullName  *string
	Password  *string
	Role      *Role
	ZoneID    *int64
	ClearZone bool
	Telephone *string
	Email     *string
	Address   *string
	IsActive  *bool
}

// StaffAccount describes a collector or admin created fully-formed by an admin.
type StaffAccount struct {
	LoginID   string
	Password  string
	Role      Role
	ZoneID    *int64
	FullName  string
	Telephone string
	Email     string
}
