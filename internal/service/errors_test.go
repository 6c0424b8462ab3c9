package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/smart-waste/internal/repository"
)

func TestFailClassifiesErrors(t *testing.T) {
	assert.NoError(t, fail("op", nil))
	assert.Same(t, ErrLocked, fail("op", ErrLocked))

	wrapped := fmt.Errorf("%w: detail", ErrInvalidInput)
	assert.Equal(t, wrapped, fail("op", wrapped))

	assert.Equal(t, ErrNotFound, fail("op", repository.ErrNotFound))
	assert.Equal(t, ErrConflict, fail("op", repository.ErrConflict))
	assert.Equal(t, ErrConflict, fail("op", repository.ErrDuplicate))
	assert.Equal(t, ErrDuplicateIdentity, fail("op", repository.ErrEmailExists))

	driver := errors.New("disk full")
	err := fail("save", driver)
	assert.ErrorIs(t, err, ErrOperationFailed)
	assert.ErrorIs(t, err, driver)
	assert.Equal(t, "save: operation failed: disk full", err.Error())
	// already classified errors are not wrapped twice
	assert.Same(t, err, fail("outer", err))
}

func TestBadCredentialsError(t *testing.T) {
	var err error = &BadCredentialsError{AttemptsRemaining: 2}
	assert.ErrorIs(t, err, ErrBadCredentials)
	assert.NotErrorIs(t, err, ErrLocked)
	var bad *BadCredentialsError
	assert.True(t, errors.As(err, &bad))
	assert.Equal(t, 2, bad.AttemptsRemaining)
}
