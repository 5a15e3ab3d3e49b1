package session

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenExpiry(t *testing.T, token string) time.Time {
	t.Helper()
	parsed, err := jwtlib.Parse(token, func(*jwtlib.Token) (interface{}, error) {
		return testSecret, nil
	}, jwtlib.WithoutClaimsValidation())
	require.NoError(t, err)
	exp, err := parsed.Claims.GetExpirationTime()
	require.NoError(t, err)
	return exp.Time
}

func TestIssueTokenZeroTTLGetsDefault(t *testing.T) {
	token, _, err := IssueToken(testSecret, "u1", 0)
	require.NoError(t, err)
	assert.True(t, tokenExpiry(t, token).After(time.Now().Add(time.Hour)))
}

func TestIssueTokenNegativeTTLMintsExpiredToken(t *testing.T) {
	token, _, err := IssueToken(testSecret, "u1", -2*time.Hour)
	require.NoError(t, err)
	assert.True(t, tokenExpiry(t, token).Before(time.Now()))
}
