package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/dittoweb/pkg/store/docroot"
	"github.com/marmos91/dittoweb/pkg/store/docroot/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore(t *testing.T) {
	suite := &storetest.StoreTestSuite{
		NewStore: func(t *testing.T) docroot.WritableStore {
			store, err := NewFSStore(context.Background(), t.TempDir())
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestNewFSStoreRequiresDirectory(t *testing.T) {
	root := t.TempDir()

	_, err := NewFSStore(context.Background(), filepath.Join(root, "missing"))
	assert.Error(t, err)

	file := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = NewFSStore(context.Background(), file)
	assert.Error(t, err)
}

func TestFSStoreDirectoryIsNotFound(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0755))

	store, err := NewFSStore(context.Background(), root)
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "/sub")
	assert.True(t, docroot.IsNotFound(err))
}

func TestFSStoreServesExistingFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "page.html"), []byte("page"), 0644))

	store, err := NewFSStore(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, root, store.Root())
	assert.Equal(t, []byte("page"), storetest.ReadDocument(t, store, "/page.html"))
}
