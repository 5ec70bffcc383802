// Package memory keeps documents in a process-local map. It backs tests and
// embedded servers whose content is generated at startup.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/marmos91/dittoweb/pkg/store/docroot"
)

// MemoryStore implements docroot.WritableStore with an in-memory map.
//
// Thread Safety:
// All methods are safe for concurrent use. Stored slices are copied on Put
// and never mutated afterwards, so readers share them without copying.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.docs[path]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s: %w", path, docroot.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Put(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	s.mu.Lock()
	s.docs[path] = stored
	s.mu.Unlock()
	return nil
}

// Delete removes the document at path. Deleting a missing document is not an error.
func (s *MemoryStore) Delete(path string) {
	s.mu.Lock()
	delete(s.docs, path)
	s.mu.Unlock()
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *MemoryStore) Close() error {
	return nil
}
