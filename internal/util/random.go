package util

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Reader is the source of entropy for nonce and key generation. Tests may
// swap it to exercise the degraded-RNG path.
var Reader io.Reader = rand.Reader

func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(Reader, b); err != nil {
		return nil, fmt.Errorf("generating random bytes: %w", err)
	}
	return b, nil
}
