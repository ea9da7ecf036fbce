package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseJWT(t *testing.T) {
	const secret = "test-secret"

	token, err := GenerateJWT("user-123", secret, time.Minute, "dops-backend")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseAndValidateJWT(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject, "Subject should carry the user ID")
	assert.Equal(t, "dops-backend", claims.Issuer, "Issuer should round-trip")

	// Wrong secret must fail signature validation
	_, err = ParseAndValidateJWT(token, "wrong-secret")
	assert.Error(t, err, "Should reject a token signed with a different secret")

	// Expired token must be rejected
	expired, err := GenerateJWT("user-123", secret, -time.Minute, "dops-backend")
	require.NoError(t, err)
	_, err = ParseAndValidateJWT(expired, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired, "Should surface the expired sentinel")
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash, "Hash should not be the plaintext")

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong password", hash))
}

func TestGenerateSecureRandomString(t *testing.T) {
	s, err := GenerateSecureRandomString(32)
	require.NoError(t, err)
	assert.Len(t, s, 64, "Hex encoding should double the byte length")

	other, err := GenerateSecureRandomString(32)
	require.NoError(t, err)
	assert.NotEqual(t, s, other, "Two draws should differ")

	_, err = GenerateSecureRandomString(0)
	assert.Error(t, err, "Should reject a non-positive length")
}

func TestRefreshTokenHashing(t *testing.T) {
	raw := "raw-refresh-token"
	stored := HashRefreshToken(raw)
	assert.Len(t, stored, 64, "SHA-256 digest should be 64 hex characters")

	assert.True(t, CompareRefreshTokenHash(raw, stored))
	assert.False(t, CompareRefreshTokenHash("other-token", stored))
}
