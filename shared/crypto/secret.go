package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// GenerateSecret returns size random bytes, base64 encoded.
// Used for jwt_key; HS256 wants at least 32 bytes.
func GenerateSecret(size int) (string, error) {
	if size < 32 {
		return "", fmt.Errorf("secret of %d bytes is too short, need at least 32", size)
	}
	key := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
