package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threed-dev/threed/shared/domain"
)

var testUser = domain.User{Id: "4b0f4a0e-7a4f-4a39-9b0e-6d1f1c9e0a11", Username: "alice"}

func TestRoundTrip(t *testing.T) {
	j := New("secret", 0)

	token, err := j.NewToken(testUser)
	require.NoError(t, err)

	identity, err := j.DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, testUser.Id, identity.Id)
	assert.Equal(t, "alice", identity.Username)
}

func TestNoExpiryByDefault(t *testing.T) {
	j := New("secret", 0)
	token, err := j.NewToken(testUser)
	require.NoError(t, err)

	parsed, _, err := gojwt.NewParser().ParseUnverified(token, gojwt.MapClaims{})
	require.NoError(t, err)
	_, hasExp := parsed.Claims.(gojwt.MapClaims)["exp"]
	assert.False(t, hasExp)
}

func TestExpiredToken(t *testing.T) {
	j := New("secret", time.Hour)
	claims := gojwt.MapClaims{"id": testUser.Id, "username": "alice", "exp": time.Now().Add(-time.Hour).Unix()}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = j.DecodeToken(token)
	assert.Error(t, err)
}

func TestDecodeToken_Rejects(t *testing.T) {
	j := New("secret", 0)
	other := New("other-secret", 0)
	foreign, err := other.NewToken(testUser)
	require.NoError(t, err)

	noneToken, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, gojwt.MapClaims{"id": "x"}).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noID, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{"username": "x"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong key":  foreign,
		"alg none":   noneToken,
		"garbage":    "not.a.token",
		"missing id": noID,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := j.DecodeToken(token)
			assert.Error(t, err)
		})
	}
}

func TestFromHeader(t *testing.T) {
	j := New("secret", 0)
	token, err := j.NewToken(testUser)
	require.NoError(t, err)

	t.Run("bearer", func(t *testing.T) {
		identity, ok := j.FromHeader("Bearer " + token).Identity()
		require.True(t, ok)
		assert.Equal(t, testUser.Id, identity.Id)
	})

	for name, header := range map[string]string{
		"empty":        "",
		"no scheme":    token,
		"basic":        "Basic " + token,
		"bearer empty": "Bearer ",
		"bad token":    "Bearer abc",
	} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, j.FromHeader(header).IsAnonymous())
		})
	}
}
