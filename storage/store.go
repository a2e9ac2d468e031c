// Package storage provides the string key-value abstraction backing all
// persisted account and vault records.
package storage

import "errors"

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("record not found")

// Store is an opaque string store addressed by string keys. Values are
// either ciphertext envelopes or non-secret bookkeeping records; callers are
// responsible for encryption before Set.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}
