// Package keyring implements storage.Store on top of the OS keyring.
//
// Records written here are protected by the platform (Keychain, libsecret,
// Credential Manager), which makes this backend the right home for the
// sealed session key used by biometric unlock. It is not suitable for bulk
// vault data; keyrings impose small value-size limits.
package keyring

import (
	"errors"

	"github.com/br-sch/PassManageApp/storage"
	"github.com/zalando/go-keyring"
)

const defaultService = "passmanage"

// Store is an OS-keyring-backed implementation of storage.Store.
type Store struct {
	service string
}

var _ storage.Store = (*Store)(nil)

// New returns a Store scoped to the default keyring service name.
func New() *Store {
	return &Store{service: defaultService}
}

// NewWithService returns a Store scoped to a custom keyring service name.
func NewWithService(service string) *Store {
	return &Store{service: service}
}

func (s *Store) Get(key string) (string, error) {
	v, err := keyring.Get(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *Store) Set(key, value string) error {
	return keyring.Set(s.service, key, value)
}

func (s *Store) Delete(key string) error {
	err := keyring.Delete(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
