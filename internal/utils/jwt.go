package utils // package utils provides credential hashing and session token helpers

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a session token fails verification.
var ErrInvalidToken = errors.New("invalid session token")

// SessionToken is a signed token handed to the UI after a successful login
// together with its expiry.
type SessionToken struct {
	Token string
	Exp   time.Time
}

// SessionClaims are the fields recovered from a verified token.
type SessionClaims struct {
	LoginID string
	Role    string
	Exp     time.Time
}

// NewSessionToken builds and signs an HS256 JWT for loginID.  The claims
// carry the subject (sub), role, expiration (exp) and issued-at (iat).
func NewSessionToken(secret, loginID, role string, ttl time.Duration, now time.Time) (SessionToken, error) {
	if secret == "" {
		return SessionToken{}, errors.New("session secret is required")
	}
	now = now.UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  loginID,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies raw against secret and returns its claims.
// now is the clock used for expiry checks.
func ParseSessionToken(secret, raw string, now time.Time) (SessionClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil || !tok.Valid {
		return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return SessionClaims{}, ErrInvalidToken
	}
	sub, _ := mc["sub"].(string)
	role, _ := mc["role"].(string)
	if sub == "" || role == "" {
		return SessionClaims{}, ErrInvalidToken
	}
	out := SessionClaims{LoginID: sub, Role: role}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.Exp = exp.Time
	}
	return out, nil
}
