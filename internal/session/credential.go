package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// credentialExpiry reads the exp claim of a JWT bearer token without verifying it.
// The backend owns the signing key; the claim is only used to expire sessions early.
// Opaque or claim-less tokens report ok=false.
func credentialExpiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// expiryFor picks the earlier of the token's own expiry and now+ttl
func expiryFor(token string, now time.Time, ttl time.Duration) time.Time {
	limit := now.Add(ttl)
	if exp, ok := credentialExpiry(token); ok && exp.Before(limit) {
		return exp
	}
	return limit
}
