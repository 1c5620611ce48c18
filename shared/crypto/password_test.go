package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	internal_errors "github.com/threed-dev/threed/shared/errors"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt(t *testing.T) {
	b, err := NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("hash then verify", func(t *testing.T) {
		hash, err := b.Hash("hunter2")
		require.NoError(t, err)
		assert.NotEqual(t, "hunter2", hash)
		assert.True(t, strings.HasPrefix(hash, "$2a$"))
		assert.True(t, b.Verify("hunter2", hash))
		assert.False(t, b.Verify("hunter3", hash))
	})

	t.Run("salted", func(t *testing.T) {
		h1, err := b.Hash("same")
		require.NoError(t, err)
		h2, err := b.Hash("same")
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2)
	})

	t.Run("garbage hash never verifies", func(t *testing.T) {
		assert.False(t, b.Verify("x", "not-a-hash"))
	})

	t.Run("over 72 bytes is a validation error", func(t *testing.T) {
		_, err := b.Hash(strings.Repeat("é", 40))
		require.Error(t, err)
		assert.Equal(t, internal_errors.ClassValidation, internal_errors.ClassOf(err))
	})

	t.Run("decoy does not panic", func(t *testing.T) {
		b.Decoy("whatever")
	})
}

func TestNewBcrypt_CostRange(t *testing.T) {
	_, err := NewBcrypt(2)
	assert.Error(t, err)
	_, err = NewBcrypt(bcrypt.MaxCost + 1)
	assert.Error(t, err)
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(32)
	require.NoError(t, err)
	b, err := GenerateSecret(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	raw, err := base64.StdEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	_, err = GenerateSecret(16)
	assert.Error(t, err)
}
