package auth

import (
	"testing"
	"time"

	"relief_backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, expiresAt, err := svc.Generate("user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
}

func TestTokenService_RejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenService("one", time.Hour).Generate("user-1")
	require.NoError(t, err)

	_, err = NewTokenService("two", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService("secret", -time.Minute)

	token, _, err := svc.Generate("user-1")
	require.NoError(t, err)

	_, err = svc.Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenService_RejectsNoneAlgorithm(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: "user-1", Issuer: tokenIssuer}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenService("secret", time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestExtractBearerToken(t *testing.T) {
	token, err := ExtractBearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	_, err = ExtractBearerToken("abc.def")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = ExtractBearerToken("Bearer ")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("correct-horse", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
	assert.Error(t, ValidatePassword("short"))
}

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(models.UserRoleAdmin, PermAllocationCreate))
	assert.False(t, HasPermission(models.UserRoleVolunteer, PermAllocationCreate))
	assert.True(t, HasPermission(models.UserRoleNGO, PermAllocationDecide))
	assert.True(t, HasPermission(models.UserRoleCommunity, PermIncidentCreate))
	assert.False(t, HasPermission(models.UserRoleAdmin, PermIncidentCreate))

	assert.True(t, HasPermission(models.UserRoleGovernment, PermStatusReport))
	assert.False(t, HasPermission(models.UserRoleCommunity, PermStatusReport))
	assert.True(t, HasPermission(models.UserRoleVolunteer, PermIncidentReadAll))
	assert.False(t, HasPermission(models.UserRoleCommunity, PermIncidentReadAll))
}
