// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
)

// DefaultBcryptCost is the work factor used for stored password hashes.
const DefaultBcryptCost = 12

// Hasher hashes and compares passwords with bcrypt at a fixed cost.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewHasher returns a [Hasher] using cost, clamped to bcrypt's accepted range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Cost returns the configured bcrypt work factor.
func (hasher *Hasher) Cost() int { return hasher.cost }

// ErrPasswordTooLong is returned by [Hasher.Hash] for input bcrypt cannot take.
var ErrPasswordTooLong = apperr.ValidationError("Password is too long", apperr.FieldError{
	Field:   "password",
	Message: "Maximum 72 bytes",
})

// Hash hashes a plain-text password.
func (hasher *Hasher) Hash(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), hasher.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Compare reports whether plainTextPassword matches existingHash.
func (hasher *Hasher) Compare(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}

// CompareDummy burns the same CPU time as a real comparison against a hash
// of the configured cost. Login calls it when no account matched, so response
// timing does not reveal whether the identifier exists.
func (hasher *Hasher) CompareDummy(plainTextPassword string) {
	hasher.dummyOnce.Do(func() {
		hasher.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), hasher.cost)
	})
	_ = bcrypt.CompareHashAndPassword(hasher.dummyHash, []byte(plainTextPassword))
}
