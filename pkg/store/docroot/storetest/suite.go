// Package storetest holds a conformance suite run against every
// docroot.WritableStore implementation.
package storetest

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/marmos91/dittoweb/pkg/store/docroot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite tests the docroot.WritableStore contract, not
// implementation details.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &storetest.StoreTestSuite{
//	        NewStore: func(t *testing.T) docroot.WritableStore {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func(t *testing.T) docroot.WritableStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("OpenMissing", suite.testOpenMissing)
	t.Run("PutThenOpen", suite.testPutThenOpen)
	t.Run("Overwrite", suite.testOverwrite)
	t.Run("NestedPaths", suite.testNestedPaths)
	t.Run("EmptyDocument", suite.testEmptyDocument)
	t.Run("BinaryContent", suite.testBinaryContent)
	t.Run("ConcurrentReads", suite.testConcurrentReads)
	t.Run("CancelledContext", suite.testCancelledContext)
}

func (suite *StoreTestSuite) newStore(t *testing.T) docroot.WritableStore {
	t.Helper()
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// ReadDocument opens path and returns its full content.
func ReadDocument(t *testing.T, store docroot.Store, path string) []byte {
	t.Helper()
	rc, err := store.Open(context.Background(), path)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func (suite *StoreTestSuite) testOpenMissing(t *testing.T) {
	store := suite.newStore(t)

	_, err := store.Open(context.Background(), "/missing.html")
	require.Error(t, err)
	assert.True(t, docroot.IsNotFound(err), "expected ErrNotFound, got %v", err)
}

func (suite *StoreTestSuite) testPutThenOpen(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "/index.html", []byte("<h1>hi</h1>")))
	assert.Equal(t, []byte("<h1>hi</h1>"), ReadDocument(t, store, "/index.html"))
}

func (suite *StoreTestSuite) testOverwrite(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "/a.txt", []byte("first version")))
	require.NoError(t, store.Put(ctx, "/a.txt", []byte("second")))
	assert.Equal(t, []byte("second"), ReadDocument(t, store, "/a.txt"))
}

func (suite *StoreTestSuite) testNestedPaths(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "/docs/guide/intro.html", []byte("intro")))
	require.NoError(t, store.Put(ctx, "/docs/index.html", []byte("index")))

	assert.Equal(t, []byte("intro"), ReadDocument(t, store, "/docs/guide/intro.html"))
	assert.Equal(t, []byte("index"), ReadDocument(t, store, "/docs/index.html"))

	_, err := store.Open(ctx, "/docs/guide/other.html")
	assert.True(t, docroot.IsNotFound(err))
}

func (suite *StoreTestSuite) testEmptyDocument(t *testing.T) {
	store := suite.newStore(t)

	require.NoError(t, store.Put(context.Background(), "/empty.txt", nil))
	assert.Empty(t, ReadDocument(t, store, "/empty.txt"))
}

func (suite *StoreTestSuite) testBinaryContent(t *testing.T) {
	store := suite.newStore(t)

	data := make([]byte, 70000)
	for i := range data {
		data[i] = byte(i * 7)
	}
	require.NoError(t, store.Put(context.Background(), "/blob.png", data))
	assert.Equal(t, data, ReadDocument(t, store, "/blob.png"))
}

func (suite *StoreTestSuite) testConcurrentReads(t *testing.T) {
	store := suite.newStore(t)
	require.NoError(t, store.Put(context.Background(), "/shared.html", []byte("shared")))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rc, err := store.Open(context.Background(), "/shared.html")
			if err != nil {
				errs <- err
				return
			}
			defer rc.Close()
			if _, err := io.ReadAll(rc); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func (suite *StoreTestSuite) testCancelledContext(t *testing.T) {
	store := suite.newStore(t)
	require.NoError(t, store.Put(context.Background(), "/x.html", []byte("x")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Open(ctx, "/x.html")
	assert.ErrorIs(t, err, context.Canceled)
}
