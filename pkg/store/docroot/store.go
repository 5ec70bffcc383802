// Package docroot defines the storage abstraction behind the document root.
//
// A Store resolves request paths to document bytes. Paths handed to a Store
// are already percent-decoded, start with "/" and contain no ".." segments;
// enforcing that is the caller's job. Implementations live in the fs, memory,
// s3 and badger sub-packages.
package docroot

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned (possibly wrapped) when no document exists at the
// requested path. Directories are reported as not found.
var ErrNotFound = errors.New("document not found")

// Store is a read-only view of a document root.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// Open returns a reader for the document at path. The caller must close it.
	//
	// Returns an error wrapping ErrNotFound when the document does not exist.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Close releases any resources held by the store.
	Close() error
}

// WritableStore is a Store that can also be populated.
type WritableStore interface {
	Store

	// Put stores data at path, replacing any previous document.
	Put(ctx context.Context, path string, data []byte) error
}

// IsNotFound reports whether err signals a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
