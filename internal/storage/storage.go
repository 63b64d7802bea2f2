// Package storage defines the namespaced key/value persistence abstraction
// used by every other component. All keys for one owner live under a common
// prefix, so wiping a user's data is a prefix scan with no cross-owner
// leakage. Set is an atomic full overwrite: it either fully succeeds or the
// prior value is unchanged and the caller receives a *Error.
package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Error wraps an adapter failure (quota exhaustion, IO error). The write
// that produced it did not take effect.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Adapter is the minimal persistence contract. Implementations exist for an
// embedded BadgerDB store and an in-memory store for tests.
type Adapter interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Set atomically replaces the full value for key.
	Set(key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// ListKeys returns all keys with the given prefix in lexicographic order.
	ListKeys(prefix string) ([]string, error)
}
