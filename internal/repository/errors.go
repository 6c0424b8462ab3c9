// Package repository maps the domain records onto the SQLite tables.  The
// sentinel values below let the service layer distinguish failure cases
// without inspecting driver messages.  ErrNotFound is returned when a row
// addressed by key does not exist, ErrConflict when a delete or update is
// blocked by dependent rows (e.g. deleting a zone that residents still
// reference).
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a delete or update cannot be performed
// because other rows depend on the target.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert or update violates a unique key.
var ErrDuplicate = errors.New("duplicate")

var (
	ErrLoginExists = errors.New("login id already exists")
	ErrEmailExists = errors.New("email already exists")
)

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint.  column, when non-empty, must appear in the message
// ("UNIQUE constraint failed: users.email").
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return column == "" || strings.Contains(msg, column)
}

// mapUserWriteErr turns unique violations on users into the named sentinels.
func mapUserWriteErr(err error) error {
	switch {
	case isUniqueViolation(err, "users.email"):
		return ErrEmailExists
	case isUniqueViolation(err, "users.login_id"):
		return ErrLoginExists
	}
	return err
}
