package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTExpiry extracts the exp claim from a JWT-shaped token without
// verifying its signature. The SDK never trusts the claim for
// authorization; it only uses it to avoid sending a token the backend is
// guaranteed to reject.
func JWTExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ResolveExpiry picks the expiry to track for a freshly issued token:
// an explicit server-provided expiry wins; otherwise a JWT exp claim is
// used; otherwise the expiry stays untracked.
func ResolveExpiry(token string, explicit time.Time) time.Time {
	if !explicit.IsZero() {
		return explicit
	}
	if exp, ok := JWTExpiry(token); ok {
		return exp
	}
	return time.Time{}
}
