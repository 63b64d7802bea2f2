// Package memstore is an in-memory storage.Adapter used in tests and as a
// scratch backend when no data directory is configured.
package memstore

import (
	"sort"
	"strings"
	"sync"

	"github.com/fintrack-dev/fintrack/internal/storage"
)

// Store is a map-backed adapter. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte

	// failNextSet, when non-nil, makes the next Set call fail with the
	// given error. Test hook for simulating quota exhaustion.
	failNextSet error
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// FailNextSet arms a one-shot Set failure.
func (s *Store) FailNextSet(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextSet = err
}

// Get returns the value for key, or storage.ErrNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set atomically replaces the value for key.
func (s *Store) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNextSet != nil {
		err := s.failNextSet
		s.failNextSet = nil
		return &storage.Error{Op: "set", Key: key, Err: err}
	}
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

// Delete removes key. Absent keys are a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// ListKeys returns all keys with prefix, sorted.
func (s *Store) ListKeys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
