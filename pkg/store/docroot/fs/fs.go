// Package fs serves documents straight from a directory on the local
// filesystem. This is the default document root.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/marmos91/dittoweb/pkg/store/docroot"
)

// FSStore implements docroot.WritableStore on top of a local directory.
//
// Document paths are appended to the root directory as they are; the store
// does not clean them, so callers must reject ".." before calling Open.
//
// Thread Safety:
// Safe for concurrent use; every Open gets its own file descriptor.
type FSStore struct {
	root string
}

// NewFSStore creates a store serving files below root.
//
// The directory must already exist; it is never created implicitly.
//
// Parameters:
//   - ctx: Context for cancellation
//   - root: Directory containing the documents
//
// Returns:
//   - *FSStore: Store ready for use
//   - error: If root does not exist or is not a directory
func NewFSStore(ctx context.Context, root string) (*FSStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access document root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("document root %s is not a directory", root)
	}

	return &FSStore{root: root}, nil
}

// Root returns the directory the store serves from.
func (s *FSStore) Root() string {
	return s.root
}

func (s *FSStore) filePath(path string) string {
	return s.root + filepath.FromSlash(path)
}

// Open opens the file at root+path read-only. Missing files and directories
// are reported as docroot.ErrNotFound.
func (s *FSStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.filePath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, docroot.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%s is a directory: %w", path, docroot.ErrNotFound)
	}

	return f, nil
}

// Put writes data to root+path, creating parent directories as needed.
func (s *FSStore) Put(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := s.filePath(path)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Close is a no-op; the store holds no open resources.
func (s *FSStore) Close() error {
	return nil
}
