package auth

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Session holds the identity and derived key of an authenticated account.
// The key lives in a memguard Enclave (encrypted at rest in memory) and is
// only materialized briefly via OpenKey. Sessions must be cleared on
// logout, account deletion, and inactivity timeout; Clear is idempotent.
type Session struct {
	mu          sync.Mutex
	username    string
	accountHash string
	key         *memguard.Enclave
}

func newSession(username, accountHash string, key []byte) *Session {
	return &Session{
		username:    username,
		accountHash: accountHash,
		key:         memguard.NewEnclave(key),
	}
}

// Username returns the account's username as entered at authentication, or
// "" after Clear.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// AccountHash returns the storage namespace hash for the account, or ""
// after Clear.
func (s *Session) AccountHash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountHash
}

// OpenKey decrypts the derived key into a locked buffer. The caller must
// Destroy the buffer as soon as the key has been used.
func (s *Session) OpenKey() (*memguard.LockedBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil, ErrInvalidCredentials
	}
	buf, err := s.key.Open()
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Active reports whether the session still holds key material.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key != nil
}

// Clear drops the identity and key material. The enclave's backing pages
// are managed by memguard; dropping the reference makes the key
// unrecoverable through this session.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = ""
	s.accountHash = ""
	s.key = nil
}
