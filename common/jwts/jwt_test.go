package jwts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_RoundTrip(t *testing.T) {
	token, err := GetToken(NewClaims("u-1", time.Hour), "secret")
	require.NoError(t, err)

	userID, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)
}

func TestToken_Rejects(t *testing.T) {
	token, err := GetToken(NewClaims("u-1", time.Hour), "secret")
	require.NoError(t, err)
	_, err = ParseToken(token, "other")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := GetToken(NewClaims("u-1", -time.Minute), "secret")
	require.NoError(t, err)
	_, err = ParseToken(expired, "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("garbage", "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
