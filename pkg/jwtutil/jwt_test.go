package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *JWTConfig {
	return &JWTConfig{
		SigningKey: "test-signing-key",
		Issuer:     "identity-service",
		Audience:   "identity-clients",
		Expiration: 24 * time.Hour,
	}
}

func testIdentity() Identity {
	return Identity{
		UserID:   uuid.New(),
		Email:    "a@acme.io",
		Name:     "Ada Lovelace",
		TenantID: uuid.New(),
	}
}

func TestGenerateAndParse(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	j := NewJWTUtil(testConfig()).WithClock(func() time.Time { return now })
	id := testIdentity()

	token, expiresAt, err := j.GenerateToken(id)
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour), expiresAt)

	claims, err := j.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, id.UserID.String(), claims.Subject)
	assert.Equal(t, id.Email, claims.Email)
	assert.Equal(t, id.Name, claims.Name)
	assert.Equal(t, id.TenantID.String(), claims.TenantID)
	assert.Equal(t, "identity-service", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"identity-clients"}, claims.Audience)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, id.UserID, userID)
	tenantID, err := claims.Tenant()
	require.NoError(t, err)
	assert.Equal(t, id.TenantID, tenantID)
}

func TestExpiredTokenIsInvalid(t *testing.T) {
	issuedAt := time.Now().Add(-25 * time.Hour)
	issuer := NewJWTUtil(testConfig()).WithClock(func() time.Time { return issuedAt })

	token, expiresAt, err := issuer.GenerateToken(testIdentity())
	require.NoError(t, err)
	assert.True(t, expiresAt.Before(time.Now()))

	assert.False(t, NewJWTUtil(testConfig()).ValidateToken(token))
	assert.True(t, issuer.ValidateToken(token))
}

func TestForgedAndMismatchedTokensAreInvalid(t *testing.T) {
	token, _, err := NewJWTUtil(testConfig()).GenerateToken(testIdentity())
	require.NoError(t, err)

	otherKey := testConfig()
	otherKey.SigningKey = "another-key"
	assert.False(t, NewJWTUtil(otherKey).ValidateToken(token))

	otherIssuer := testConfig()
	otherIssuer.Issuer = "someone-else"
	assert.False(t, NewJWTUtil(otherIssuer).ValidateToken(token))

	otherAudience := testConfig()
	otherAudience.Audience = "other-clients"
	assert.False(t, NewJWTUtil(otherAudience).ValidateToken(token))
}

func TestMalformedTokensAreInvalid(t *testing.T) {
	j := NewJWTUtil(testConfig())
	for _, token := range []string{"", "abc", "a.b.c", "Bearer xyz"} {
		assert.False(t, j.ValidateToken(token), token)
	}
}

func TestRejectsOtherAlgorithms(t *testing.T) {
	cfg := testConfig()
	claims := UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.SigningKey))
	require.NoError(t, err)
	assert.False(t, NewJWTUtil(cfg).ValidateToken(token))

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.False(t, NewJWTUtil(cfg).ValidateToken(unsigned))
}

func TestMissingConfiguration(t *testing.T) {
	j := NewJWTUtil(nil)
	_, _, err := j.GenerateToken(testIdentity())
	assert.Error(t, err)
	assert.False(t, j.ValidateToken("x"))
}
