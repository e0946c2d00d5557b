package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user-1", "session-1", "device-1", "photographer", time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, "device-1", claims.DeviceID)
	assert.Equal(t, "photographer", claims.Role)
}

func TestParseAccessTokenFailures(t *testing.T) {
	valid, err := GenerateAccessToken("secret", "user-1", "session-1", "device-1", "client", time.Minute)
	require.NoError(t, err)
	expired, err := GenerateAccessToken("secret", "user-1", "session-1", "device-1", "client", -time.Minute)
	require.NoError(t, err)

	cases := map[string]struct {
		token  string
		secret string
	}{
		"empty":        {"", "secret"},
		"garbage":      {"not.a.jwt", "secret"},
		"wrong secret": {valid, "other"},
		"expired":      {expired, "secret"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccessToken(tc.token, tc.secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRefreshTokenHash(t *testing.T) {
	token, hash, err := GenerateRefreshToken(32)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, hash, HashRefreshToken(token))
}
