package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", 24*time.Hour, 7*24*time.Hour)

	raw, err := m.GenerateAccessToken("u1", "a@b.c", "SUPER_ADMIN")
	require.NoError(t, err)

	claims, err := m.ParseAccessToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.Equal(t, "SUPER_ADMIN", claims.Role)

	_, err = m.ParseRefreshToken(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour, 7*24*time.Hour)

	raw, id, exp, err := m.GenerateRefreshToken("u1")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, time.Minute)

	claims, err := m.ParseRefreshToken(raw)
	require.NoError(t, err)
	assert.Equal(t, id, claims.ID)
	assert.Equal(t, "refresh", claims.Type)

	_, err = m.ParseAccessToken(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	raw2, id2, _, err := m.GenerateRefreshToken("u1")
	require.NoError(t, err)
	assert.NotEqual(t, raw, raw2)
	assert.NotEqual(t, id, id2)
}

func TestExpiredToken(t *testing.T) {
	m := NewTokenManager("secret", time.Hour, time.Hour)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, err := m.GenerateAccessToken("u1", "a@b.c", "SUPER_ADMIN")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ParseAccessToken(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenSignedWithOtherSecret(t *testing.T) {
	other := NewTokenManager("other", time.Hour, time.Hour)
	raw, err := other.GenerateAccessToken("u1", "", "")
	require.NoError(t, err)

	m := NewTokenManager("secret", time.Hour, time.Hour)
	_, err = m.ParseAccessToken(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenRejectsNoneAlgorithm(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	m := NewTokenManager("secret", time.Hour, time.Hour)
	_, err = m.ParseAccessToken(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
