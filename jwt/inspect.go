package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by [Inspect] for credentials that are not compact JWTs.
// Opaque access tokens are legal; callers treat this as "expiry unknown".
var ErrNotJWT = errors.New("credential is not a jwt")

// Claims is the unverified view of an access token.
type Claims struct {
	Subject   string
	Username  string
	Email     string
	Kind      string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// ExpiresWithin reports whether the token expires within skew of now. Tokens
// without an exp claim never expire.
func (c Claims) ExpiresWithin(now time.Time, skew time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(c.ExpiresAt)
}

// Inspect parses token without verifying its signature.
func Inspect(token string) (Claims, error) {
	parser := jwt.NewParser()
	var tc TokenClaims
	if _, _, err := parser.ParseUnverified(token, &tc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	out := Claims{
		Subject:  tc.Subject,
		Username: tc.Username,
		Email:    tc.Email,
		Kind:     tc.Kind,
	}
	if out.Subject == "" {
		out.Subject = tc.UID
	}
	if tc.ExpiresAt != nil {
		out.ExpiresAt = tc.ExpiresAt.Time
	}
	if tc.IssuedAt != nil {
		out.IssuedAt = tc.IssuedAt.Time
	}
	return out, nil
}
