package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/smart-waste/internal/repository"
)

// Failure taxonomy returned by every service.  The UI maps each value to a
// localized message; services never return display strings.
var (
	ErrDuplicateIdentity = errors.New("duplicate identity")
	ErrSessionExpired    = errors.New("registration session expired")
	ErrNotFound          = errors.New("not found")
	ErrLocked            = errors.New("account locked")
	ErrBadCredentials    = errors.New("bad credentials")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrReasonRequired    = errors.New("reason required")
	ErrZoneRequired      = errors.New("zone required")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
	ErrOperationFailed   = errors.New("operation failed")
)

// BadCredentialsError reports a wrong password and how many attempts remain
// before the account locks.  errors.Is(err, ErrBadCredentials) matches it.
type BadCredentialsError struct {
	AttemptsRemaining int
}

func (e *BadCredentialsError) Error() string {
	return fmt.Sprintf("bad credentials: %d attempts remaining", e.AttemptsRemaining)
}

func (e *BadCredentialsError) Is(target error) bool { return target == ErrBadCredentials }

// OperationError wraps a storage failure.  The transaction it happened in
// has been rolled back.  errors.Is(err, ErrOperationFailed) matches it and
// errors.Unwrap returns the driver error.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string { return e.Op + ": operation failed: " + e.Err.Error() }

func (e *OperationError) Unwrap() error { return e.Err }

func (e *OperationError) Is(target error) bool { return target == ErrOperationFailed }

var domainErrors = []error{
	ErrDuplicateIdentity, ErrSessionExpired, ErrNotFound, ErrLocked, ErrBadCredentials,
	ErrUnauthorized, ErrInvalidTransition, ErrReasonRequired, ErrZoneRequired, ErrConflict,
	ErrInvalidInput, ErrOperationFailed,
}

// fail classifies err for the caller of op.  Taxonomy errors pass through,
// repository sentinels are translated and anything else becomes an
// OperationError.
func fail(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return err
		}
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrDuplicate):
		return ErrConflict
	case errors.Is(err, repository.ErrLoginExists), errors.Is(err, repository.ErrEmailExists):
		return ErrDuplicateIdentity
	}
	return &OperationError{Op: op, Err: err}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
