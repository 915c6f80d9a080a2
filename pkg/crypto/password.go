package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt work factors accepted by HashPassword.
const (
	MinCost     = bcrypt.MinCost
	DefaultCost = bcrypt.DefaultCost
	MaxCost     = bcrypt.MaxCost
)

// maxPasswordBytes is the bcrypt input limit; longer input would be truncated.
const maxPasswordBytes = 72

// ErrPasswordTooLong rejects passwords bcrypt cannot hash in full.
var ErrPasswordTooLong = errors.New("crypto: password longer than 72 bytes")

// HashPassword hashes plain with bcrypt at cost. A cost outside
// [MinCost, MaxCost] uses DefaultCost.
func HashPassword(plain string, cost int) ([]byte, error) {
	if len(plain) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	if cost < MinCost || cost > MaxCost {
		cost = DefaultCost
	}
	return bcrypt.GenerateFromPassword([]byte(plain), cost)
}

// ComparePassword reports a mismatch between hash and plain as an error.
func ComparePassword(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}
