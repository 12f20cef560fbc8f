package security

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type PasswordMatch int

const (
	PasswordMismatch PasswordMatch = iota
	PasswordMatchHash
	// PasswordMatchLegacy means the stored value was plaintext and equal to
	// the candidate. Callers should re-hash immediately.
	PasswordMatchLegacy
)

var bcryptPrefixes = [][]byte{[]byte("$2a$"), []byte("$2b$"), []byte("$2y$")}

func HashPassword(password string, cost int) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt: %w", err)
	}
	return hash, nil
}

// VerifyPassword checks password against stored. When allowLegacy is set and
// stored is not a bcrypt hash, a constant-time equality check against the
// stored plaintext is attempted.
func VerifyPassword(password string, stored []byte, allowLegacy bool) PasswordMatch {
	err := bcrypt.CompareHashAndPassword(stored, []byte(password))
	if err == nil {
		return PasswordMatchHash
	}
	if !allowLegacy || len(stored) == 0 || isBcryptHash(stored) {
		return PasswordMismatch
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return PasswordMismatch
	}
	if subtle.ConstantTimeCompare(stored, []byte(password)) == 1 {
		return PasswordMatchLegacy
	}
	return PasswordMismatch
}

func isBcryptHash(stored []byte) bool {
	for _, prefix := range bcryptPrefixes {
		if bytes.HasPrefix(stored, prefix) {
			return true
		}
	}
	return false
}
