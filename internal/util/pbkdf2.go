package util

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const PBKDF2KeyLength = 32

func DerivePBKDF2Key(password string, salt []byte, iterations int) ([]byte, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("pbkdf2 iteration count must be positive, got %d", iterations)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("pbkdf2 salt must not be empty")
	}
	return pbkdf2.Key([]byte(password), salt, iterations, PBKDF2KeyLength, sha256.New), nil
}
