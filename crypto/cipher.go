package crypto

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/br-sch/PassManageApp/internal/logging"
	"github.com/br-sch/PassManageApp/internal/util"
)

// ErrDecryption is returned for malformed envelopes, wrong keys, and
// tampered ciphertext. Callers never see the underlying cause across this
// boundary.
var ErrDecryption = errors.New("decryption failed")

// CipherOption customizes envelope encryption.
type CipherOption func(*cipherOptions)

type cipherOptions struct {
	allowFallback bool
	now           func() time.Time
	log           logging.Logger
}

// WithDeterministicFallback controls whether nonce generation may fall back
// to a time-and-key-derived value when the system RNG is unavailable. The
// fallback keeps previously deployed environments working but weakens nonce
// unpredictability; disable it to fail hard instead.
func WithDeterministicFallback(enabled bool) CipherOption {
	return func(o *cipherOptions) {
		o.allowFallback = enabled
	}
}

// WithClock sets the time source used by the deterministic nonce fallback.
func WithClock(now func() time.Time) CipherOption {
	return func(o *cipherOptions) {
		o.now = now
	}
}

// WithCipherLogger sets the logger that records fallback activations.
func WithCipherLogger(log logging.Logger) CipherOption {
	return func(o *cipherOptions) {
		o.log = log
	}
}

func newCipherOptions(opts []CipherOption) cipherOptions {
	o := cipherOptions{
		allowFallback: true,
		now:           time.Now,
		log:           logging.Nop{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// EncryptText encrypts plain under key with AES-256-GCM and returns the
// envelope "nonceHex:base64(ciphertext)". The nonce comes from the system
// RNG; see WithDeterministicFallback for the degraded path.
func EncryptText(plain string, key []byte, opts ...CipherOption) (string, error) {
	o := newCipherOptions(opts)

	nonce, err := util.RandomBytes(util.GCMNonceSize)
	if err != nil {
		if !o.allowFallback {
			return "", fmt.Errorf("generating nonce: %w", err)
		}
		nonce = fallbackNonce(o.now(), key)
		o.log.Warn(context.Background(), "system RNG unavailable, using deterministic fallback nonce", "error", err)
	}

	cipherText, err := util.EncryptAESGCM([]byte(plain), key, nonce)
	if err != nil {
		return "", fmt.Errorf("encrypting text: %w", err)
	}
	return util.HexEncode(nonce) + ":" + base64.StdEncoding.EncodeToString(cipherText), nil
}

// DecryptText opens an "ivOrNonceHex:payload" envelope. A 12-byte nonce
// selects AES-GCM; a 16-byte IV selects the legacy AES-CBC format written
// by older releases. Any malformed input or authentication failure yields
// ErrDecryption.
func DecryptText(envelope string, key []byte) (string, error) {
	ivHex, payload, ok := strings.Cut(envelope, ":")
	if !ok {
		return "", fmt.Errorf("%w: missing envelope separator", ErrDecryption)
	}
	iv, err := util.HexDecode(ivHex)
	if err != nil {
		return "", fmt.Errorf("%w: malformed IV", ErrDecryption)
	}
	cipherText, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: malformed payload", ErrDecryption)
	}

	var plain []byte
	switch len(iv) {
	case util.GCMNonceSize:
		plain, err = util.DecryptAESGCM(cipherText, key, iv)
	case util.CBCIVSize:
		plain, err = util.DecryptAESCBC(cipherText, key, iv)
	default:
		return "", fmt.Errorf("%w: unsupported IV size %d", ErrDecryption, len(iv))
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDecryption, "envelope did not open")
	}
	return string(plain), nil
}

// fallbackNonce derives a nonce from the current time and the key. It is
// deterministic for a fixed instant, which is a documented reduction in
// security relative to a random nonce.
func fallbackNonce(now time.Time, key []byte) []byte {
	seed := sha256.Sum256([]byte(strconv.FormatInt(now.UnixMilli(), 10) + ":" + util.HexEncode(key)))
	return seed[:util.GCMNonceSize]
}
