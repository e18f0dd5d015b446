// Package secure provides the cryptographic primitives used by the
// authentication layer: password hashing, random token generation, and
// CSRF proof generation/verification.
package secure

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dverhagen/doorman/internal/util"
)

// HashPassword hashes a plaintext password with bcrypt. The salt is
// random per call, so hashing the same input twice yields different
// outputs. Input is NFKD-normalized first so the same passphrase typed
// on different platforms verifies correctly.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(util.Normalize(plaintext)), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches the given bcrypt
// hash. An empty hash always fails: externally-provisioned accounts
// have no local password and must not be loggable-into with one.
func VerifyPassword(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(util.Normalize(plaintext))) == nil
}
