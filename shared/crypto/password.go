package crypto

import (
	"errors"
	"fmt"

	internal_errors "github.com/threed-dev/threed/shared/errors"
	"golang.org/x/crypto/bcrypt"
)

// Bcrypt hashes and checks user passwords.
type Bcrypt struct {
	cost  int
	decoy []byte
}

func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	decoy, err := bcrypt.GenerateFromPassword([]byte("threed-decoy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare decoy hash: %w", err)
	}
	return &Bcrypt{cost: cost, decoy: decoy}, nil
}

func (b *Bcrypt) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", internal_errors.Validation("password must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (b *Bcrypt) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Decoy spends the same time as Verify against a real hash. Used when the
// user does not exist so response time does not give that away.
func (b *Bcrypt) Decoy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(b.decoy, []byte(plaintext))
}
