package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims mirrors the payload of the bearer tokens the upstream API
// issues. The gateway never validates the signature (the upstream owns the
// secret); it only peeks at expiry to refresh proactively.
type AccessClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"rol"`
	jwt.RegisteredClaims
}

// TokenExpiry returns the expiry carried in the bearer token, or zero when
// the token is opaque or carries no exp claim.
func TokenExpiry(token string) time.Time {
	claims := &AccessClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// TokenExpiresWithin reports whether the token expires inside the window.
// Opaque tokens never report as expiring; the 401 path handles those.
func TokenExpiresWithin(token string, window time.Duration) bool {
	exp := TokenExpiry(token)
	if exp.IsZero() {
		return false
	}
	return time.Until(exp) < window
}
