package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PasswordIterations is the PBKDF2 work factor for new credentials.
	PasswordIterations = 120000
	passwordSaltLen    = 16
	passwordKeyLen     = sha256.Size
	credentialSep      = "$"
)

// ErrEmptyPassword is returned by HashPassword for an empty input.
var ErrEmptyPassword = errors.New("password must not be empty")

// HashPassword derives a salted credential from plain.  The result has the
// form "salt_hex$digest_hex" and carries everything VerifyPassword needs.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, passwordSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(plain), salt, PasswordIterations, passwordKeyLen, sha256.New)
	return hex.EncodeToString(salt) + credentialSep + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether plain matches the stored credential.
// Besides the salted format it accepts two legacy forms: a bare SHA-256 hex
// digest and, for the oldest rows, the plaintext itself.  needsUpgrade is
// true when plain matched a legacy form and the caller should re-hash it.
// A malformed credential never matches.
func VerifyPassword(stored, plain string) (ok, needsUpgrade bool) {
	if stored == "" {
		return false, false
	}
	if saltHex, digestHex, found := strings.Cut(stored, credentialSep); found {
		salt, err := hex.DecodeString(saltHex)
		if err != nil || len(salt) == 0 {
			return false, false
		}
		expected, err := hex.DecodeString(digestHex)
		if err != nil || len(expected) != passwordKeyLen {
			return false, false
		}
		actual := pbkdf2.Key([]byte(plain), salt, PasswordIterations, passwordKeyLen, sha256.New)
		return subtle.ConstantTimeCompare(actual, expected) == 1, false
	}

	if isLegacyDigest(stored) {
		sum := sha256.Sum256([]byte(plain))
		legacy := hex.EncodeToString(sum[:])
		ok := subtle.ConstantTimeCompare([]byte(legacy), []byte(strings.ToLower(stored))) == 1
		return ok, ok
	}

	ok = subtle.ConstantTimeCompare([]byte(plain), []byte(stored)) == 1
	return ok, ok
}

// LegacyDigest returns the unsalted SHA-256 hex digest older builds stored.
// It exists so callers can produce fixtures for legacy rows.
func LegacyDigest(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func isLegacyDigest(s string) bool {
	if len(s) != 2*sha256.Size {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
