package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tok, err := NewSessionToken("s3cret", "resident1", "Resident", time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), tok.Exp)

	claims, err := ParseSessionToken("s3cret", tok.Token, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "resident1", claims.LoginID)
	assert.Equal(t, "Resident", claims.Role)
	assert.Equal(t, tok.Exp.Unix(), claims.Exp.Unix())
}

func TestSessionTokenRejected(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tok, err := NewSessionToken("s3cret", "resident1", "Resident", time.Hour, now)
	require.NoError(t, err)

	_, err = ParseSessionToken("other", tok.Token, now)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseSessionToken("s3cret", tok.Token, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseSessionToken("s3cret", "garbage", now)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSessionTokenRequiresSecret(t *testing.T) {
	_, err := NewSessionToken("", "a", "Resident", time.Hour, time.Now())
	assert.Error(t, err)
}
