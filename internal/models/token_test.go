package models

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		UserID: "u-1",
		Role:   "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	})
	signed, err := token.SignedString([]byte("upstream-secret"))
	require.NoError(t, err)
	return signed
}

func TestTokenExpiry(t *testing.T) {
	token := signedToken(t, time.Hour)
	exp := TokenExpiry(token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)
}

func TestTokenExpiryOpaqueToken(t *testing.T) {
	assert.True(t, TokenExpiry("not-a-jwt").IsZero())
	assert.True(t, TokenExpiry("").IsZero())
}

func TestTokenExpiresWithin(t *testing.T) {
	soon := signedToken(t, 2*time.Minute)
	later := signedToken(t, time.Hour)

	assert.True(t, TokenExpiresWithin(soon, 5*time.Minute))
	assert.False(t, TokenExpiresWithin(later, 5*time.Minute))
	assert.False(t, TokenExpiresWithin("opaque", 5*time.Minute))
}
