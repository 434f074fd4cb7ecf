package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("secret", "bob", time.Hour)
	require.NoError(t, err)

	username, err := ParseToken("secret", token)

	require.NoError(t, err)
	assert.Equal(t, "bob", username)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", "bob", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("other", token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	token, err := GenerateToken("secret", "bob", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("secret", token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_MissingUsername(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ParseToken("secret", token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_NoExpiry(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "bob",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ParseToken("secret", token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}
