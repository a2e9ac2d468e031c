package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/br-sch/PassManageApp/internal/util"
)

// verifierMessage is the constant plaintext every verifier commits to.
const verifierMessage = "verified"

// VerifierKind discriminates the verifier wire formats.
type VerifierKind int

const (
	// VerifierMAC is the current format: an HMAC over the constant
	// message, keyed by the derived key. Requires no randomness, so two
	// registrations with the same password produce the same verifier.
	VerifierMAC VerifierKind = iota
	// VerifierLegacyEncrypted is the pre-MAC format: the constant message
	// encrypted under the derived key as an iv:ciphertext envelope.
	VerifierLegacyEncrypted
)

func (k VerifierKind) String() string {
	switch k {
	case VerifierMAC:
		return "mac"
	case VerifierLegacyEncrypted:
		return "legacy-encrypted"
	default:
		return "unknown"
	}
}

// Verifier proves a password is correct without storing the password, the
// key, or any salt. Exactly one of MAC or Envelope is set, selected by Kind.
type Verifier struct {
	Kind     VerifierKind
	MAC      string // hex HMAC-SHA256, VerifierMAC
	Envelope string // iv:ciphertext, VerifierLegacyEncrypted
}

type jsonVerifier struct {
	Kind string `json:"kind"`
	MAC  string `json:"mac"`
}

// MakeVerifier builds a MAC-format verifier for the derived key.
func MakeVerifier(key []byte) Verifier {
	return Verifier{Kind: VerifierMAC, MAC: computeMAC(key)}
}

// Encode renders the verifier in its storage form: JSON for the MAC format,
// the bare envelope string for the legacy format.
func (v Verifier) Encode() (string, error) {
	switch v.Kind {
	case VerifierMAC:
		b, err := json.Marshal(jsonVerifier{Kind: "mac", MAC: v.MAC})
		if err != nil {
			return "", fmt.Errorf("encoding verifier: %w", err)
		}
		return string(b), nil
	case VerifierLegacyEncrypted:
		return v.Envelope, nil
	default:
		return "", fmt.Errorf("unknown verifier kind %d", v.Kind)
	}
}

// ParseVerifier reads a stored verifier. A JSON object with kind "mac" maps
// to the MAC format; anything else is treated as a legacy envelope, whose
// validity is only established when it is checked against a key.
func ParseVerifier(raw string) Verifier {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var jv jsonVerifier
		if err := json.Unmarshal([]byte(trimmed), &jv); err == nil && jv.Kind == "mac" && jv.MAC != "" {
			return Verifier{Kind: VerifierMAC, MAC: jv.MAC}
		}
	}
	return Verifier{Kind: VerifierLegacyEncrypted, Envelope: raw}
}

// CheckVerifier reports whether key matches the stored verifier. MAC
// verifiers compare in constant time on the hex encoding; legacy verifiers
// decrypt and compare the recovered plaintext. All failures, including
// malformed legacy data, yield false rather than an error.
func CheckVerifier(v Verifier, key []byte) bool {
	switch v.Kind {
	case VerifierMAC:
		expected := computeMAC(key)
		got := strings.ToLower(v.MAC)
		return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
	case VerifierLegacyEncrypted:
		plain, err := DecryptText(v.Envelope, key)
		if err != nil {
			return false
		}
		return plain == verifierMessage
	default:
		return false
	}
}

func computeMAC(key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(verifierMessage))
	return util.HexEncode(mac.Sum(nil))
}
