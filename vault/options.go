package vault

import (
	"time"

	"github.com/br-sch/PassManageApp/crypto"
	"github.com/br-sch/PassManageApp/internal/logging"
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the structured logger.
func WithLogger(log logging.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// WithClock sets the time source used for entry timestamps and ID minting.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithCipherOptions passes options through to envelope encryption, e.g. to
// disable the deterministic nonce fallback.
func WithCipherOptions(opts ...crypto.CipherOption) StoreOption {
	return func(s *Store) {
		s.cipherOpts = opts
	}
}
