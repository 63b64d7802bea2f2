// Package badgerstore implements storage.Adapter on an embedded BadgerDB.
// Badger gives us atomic single-key writes and ordered prefix iteration,
// which is exactly the adapter contract.
package badgerstore

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/fintrack-dev/fintrack/internal/storage"
)

// Config holds options for opening a Store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory disables disk persistence. Useful for tests.
	InMemory bool

	// SyncWrites forces an fsync per write. On for real data, off for tests.
	SyncWrites bool

	// Logger receives badger's internal log lines at debug level.
	Logger zerolog.Logger
}

// Store is a BadgerDB-backed adapter. Close must be called when done.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the database described by cfg.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerLogger{cfg.Logger})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", cfg.Path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database. Further calls on the Store will fail.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key, or storage.ErrNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, &storage.Error{Op: "get", Key: key, Err: err}
	}
	return out, nil
}

// Set atomically replaces the value for key. Badger transactions commit
// fully or not at all, so a failed Set leaves the prior value intact.
func (s *Store) Set(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return &storage.Error{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return &storage.Error{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// ListKeys returns all keys with prefix in lexicographic order.
func (s *Store) ListKeys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, &storage.Error{Op: "list", Key: prefix, Err: err}
	}
	return keys, nil
}

// badgerLogger adapts zerolog to badger's Logger interface. Badger is
// chatty, so everything lands at debug.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}
