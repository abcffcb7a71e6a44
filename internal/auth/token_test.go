package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *TokenConfig {
	return &TokenConfig{Secret: []byte("0123456789abcdef0123456789abcdef"), Expiration: time.Hour, Issuer: "scribenest"}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	token, claims, err := GenerateToken("u1", PurposeAccess, cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	parsed, err := ParseToken(token, PurposeAccess, cfg)
	require.NoError(t, err)
	assert.Equal(t, "u1", parsed.Subject)
	assert.Equal(t, claims.ID, parsed.ID)
	assert.Equal(t, "scribenest", parsed.Issuer)
}

func TestTokenRejections(t *testing.T) {
	cfg := testConfig()
	token, _, err := GenerateToken("u1", PurposeConfirm, cfg)
	require.NoError(t, err)

	_, err = ParseToken(token, PurposeAccess, cfg)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := testConfig()
	other.Secret = []byte("another-secret-another-secret-xx")
	_, err = ParseToken(token, PurposeConfirm, other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("not.a.token", PurposeConfirm, cfg)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := testConfig()
	expired.Expiration = -time.Minute
	old, _, err := GenerateToken("u1", PurposeAccess, expired)
	require.NoError(t, err)
	_, err = ParseToken(old, PurposeAccess, cfg)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRequiresSecret(t *testing.T) {
	_, _, err := GenerateToken("u1", PurposeAccess, &TokenConfig{})
	assert.Error(t, err)
	_, err = ParseToken("x", PurposeAccess, &TokenConfig{})
	assert.Error(t, err)
}

func TestGenerateSecureKey(t *testing.T) {
	key, err := GenerateSecureKey(0)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	other, err := GenerateSecureKey(16)
	require.NoError(t, err)
	assert.Len(t, other, 16)
}
