// Package crypto implements the key derivation, password verifier, and text
// cipher primitives for the credential vault. Keys are derived
// deterministically from (password, username): the per-account salt is a
// hash of the normalized username, so no salt record ever needs to be
// persisted.
package crypto

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/br-sch/PassManageApp/internal/util"
)

// PBKDF2-SHA256 iteration tiers. Standard is the default; Interactive is a
// documented fast tier for constrained runtimes where the full stretch
// would block an interactive session. Changing tiers between registration
// and login changes the derived key and fails verification.
const (
	IterationsStandard    = 100_000
	IterationsInteractive = 30_000
)

// KeySize is the derived symmetric key size in bytes (AES-256).
const KeySize = util.AESKeySize

// KDFParams configures password stretching.
type KDFParams struct {
	Iterations int `json:"iterations"`
}

// DefaultKDFParams returns the standard-tier parameters.
func DefaultKDFParams() KDFParams {
	return KDFParams{Iterations: IterationsStandard}
}

// NormalizeUsername canonicalizes a username for salting and storage
// namespacing: NFKD normalization, surrounding whitespace trimmed, then
// lowercased. Two usernames that normalize equal are the same account.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(util.Normalize(username)))
}

// SaltForUser derives the per-account KDF salt from the normalized username.
func SaltForUser(username string) []byte {
	sum := sha256.Sum256([]byte(NormalizeUsername(username)))
	return sum[:]
}

// AccountHash returns the storage namespace for an account: the hex SHA-256
// of "user:" + normalized username.
func AccountHash(username string) string {
	sum := sha256.Sum256([]byte("user:" + NormalizeUsername(username)))
	return util.HexEncode(sum[:])
}

// DeriveKey stretches password into a 256-bit symmetric key using
// PBKDF2-SHA256 with the account's deterministic salt. Same
// (password, username) always yields the same key bytes.
func DeriveKey(password, username string, params KDFParams) ([]byte, error) {
	if params.Iterations <= 0 {
		return nil, fmt.Errorf("kdf iteration count must be positive, got %d", params.Iterations)
	}
	key, err := util.DerivePBKDF2Key(password, SaltForUser(username), params.Iterations)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	return key, nil
}
