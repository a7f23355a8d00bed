// Package password hashes and verifies credentials with bcrypt at a fixed cost.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the work factor used when none is configured
const DefaultCost = 11

// MinLength is the shortest password accepted for new credentials
const MinLength = 8

// ErrTooShort is returned by CheckPolicy for passwords under MinLength
var ErrTooShort = fmt.Errorf("password must be at least %d characters", MinLength)

// Hasher wraps bcrypt with a fixed cost
type Hasher struct {
	cost int
}

// NewHasher creates a hasher; a cost outside bcrypt's range falls back to DefaultCost
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost returns the configured work factor
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns the salted bcrypt hash of plain
func (h *Hasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plain matches hash. A malformed hash never matches.
func (h *Hasher) Verify(hash, plain string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	return err == nil
}

// CheckPolicy validates a new password
func CheckPolicy(plain string) error {
	if len(plain) < MinLength {
		return ErrTooShort
	}
	if len(plain) > 72 {
		return errors.New("password must be at most 72 bytes")
	}
	return nil
}
