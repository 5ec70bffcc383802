// Package badger keeps documents in an embedded BadgerDB database.
//
// Documents are stored whole under the key "doc:" + path. The database is
// seeded with Put or docroot.ImportDir (see the "import" command).
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v4"
	"github.com/marmos91/dittoweb/pkg/store/docroot"
)

const keyPrefix = "doc:"

// BadgerStore implements docroot.WritableStore on BadgerDB.
//
// Thread Safety:
// Safe for concurrent use; BadgerDB transactions provide isolation.
type BadgerStore struct {
	db *badger.DB
}

// BadgerStoreConfig contains configuration for the BadgerDB store.
type BadgerStoreConfig struct {
	// DBPath is the directory holding the database files. Created if missing.
	DBPath string `mapstructure:"db_path"`

	// InMemory runs BadgerDB without touching disk. DBPath is ignored.
	InMemory bool `mapstructure:"in_memory"`

	// ReadOnly opens an existing database without write access.
	ReadOnly bool `mapstructure:"read_only"`
}

// NewBadgerStore opens (or creates) the database described by cfg.
//
// Parameters:
//   - ctx: Context for cancellation
//   - cfg: Database location and mode
//
// Returns:
//   - *BadgerStore: Store ready for use
//   - error: If the database cannot be opened
func NewBadgerStore(ctx context.Context, cfg BadgerStoreConfig) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("db_path is required")
		}
		opts = badger.DefaultOptions(cfg.DBPath).WithReadOnly(cfg.ReadOnly)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	return &BadgerStore{db: db}, nil
}

func documentKey(path string) []byte {
	return []byte(keyPrefix + path)
}

// Open reads the whole document inside a read transaction. Badger values are
// only valid within their transaction, so the bytes are copied out.
func (s *BadgerStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(documentKey(path))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%s: %w", path, docroot.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *BadgerStore) Put(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(documentKey(path), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
