package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// hashPassword bcrypt-hashes a password for storage on the user row.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// checkPassword reports whether password matches the stored bcrypt hash.
// A malformed hash reads as a mismatch.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
