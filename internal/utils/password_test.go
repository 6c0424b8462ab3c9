package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	h, err := HashPassword("Secret#123")
	require.NoError(t, err)

	salt, digest, ok := strings.Cut(h, "$")
	require.True(t, ok)
	assert.Len(t, salt, 32)
	assert.Len(t, digest, 64)

	ok, upgrade := VerifyPassword(h, "Secret#123")
	assert.True(t, ok)
	assert.False(t, upgrade)

	ok, _ = VerifyPassword(h, "Secret#124")
	assert.False(t, ok)
}

func TestHashPasswordSaltsEachCall(t *testing.T) {
	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestVerifyPasswordLegacyForms(t *testing.T) {
	ok, upgrade := VerifyPassword(LegacyDigest("admin123"), "admin123")
	assert.True(t, ok)
	assert.True(t, upgrade)

	ok, upgrade = VerifyPassword(strings.ToUpper(LegacyDigest("admin123")), "admin123")
	assert.True(t, ok)
	assert.True(t, upgrade)

	ok, _ = VerifyPassword(LegacyDigest("admin123"), "admin124")
	assert.False(t, ok)

	ok, upgrade = VerifyPassword("plain-old", "plain-old")
	assert.True(t, ok)
	assert.True(t, upgrade)

	// Anything holding '$' is parsed as salt$digest, never as plaintext.
	ok, upgrade = VerifyPassword("pa$$word", "pa$$word")
	assert.False(t, ok)
	assert.False(t, upgrade)
}

func TestVerifyPasswordMalformed(t *testing.T) {
	for _, stored := range []string{
		"",
		"$",
		"zz$00",
		"00ff$not-hex",
		"00ff$00ff",
		"$" + LegacyDigest("x"),
	} {
		ok, upgrade := VerifyPassword(stored, "x")
		assert.False(t, ok, stored)
		assert.False(t, upgrade, stored)
	}
}
