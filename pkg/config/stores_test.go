package config

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	docbadger "github.com/marmos91/dittoweb/pkg/store/docroot/badger"
	docfs "github.com/marmos91/dittoweb/pkg/store/docroot/fs"
	docmemory "github.com/marmos91/dittoweb/pkg/store/docroot/memory"
)

func TestCreateStore_Filesystem(t *testing.T) {
	root := t.TempDir()
	cfg := &StoreConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": root},
	}

	store, err := CreateStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	defer store.Close()

	fsStore, ok := store.(*docfs.FSStore)
	if !ok {
		t.Fatalf("Expected *fs.FSStore, got %T", store)
	}
	if fsStore.Root() != root {
		t.Errorf("Expected root %q, got %q", root, fsStore.Root())
	}
}

func TestCreateStore_FilesystemMissingDirectory(t *testing.T) {
	cfg := &StoreConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": filepath.Join(t.TempDir(), "missing")},
	}

	if _, err := CreateStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for a document root that does not exist")
	}
}

func TestCreateStore_FilesystemRequiresPath(t *testing.T) {
	cfg := &StoreConfig{Type: "filesystem", Filesystem: map[string]any{}}

	_, err := CreateStore(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error without a path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("Expected 'path is required' error, got: %v", err)
	}
}

func TestCreateStore_Memory(t *testing.T) {
	store, err := CreateStore(context.Background(), &StoreConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	defer store.Close()

	if _, ok := store.(*docmemory.MemoryStore); !ok {
		t.Fatalf("Expected *memory.MemoryStore, got %T", store)
	}
}

func TestCreateStore_Badger(t *testing.T) {
	cfg := &StoreConfig{
		Type:   "badger",
		Badger: map[string]any{"db_path": filepath.Join(t.TempDir(), "docs")},
	}

	store, err := CreateStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	defer store.Close()

	if _, ok := store.(*docbadger.BadgerStore); !ok {
		t.Fatalf("Expected *badger.BadgerStore, got %T", store)
	}

	ctx := context.Background()
	if err := store.Put(ctx, "/index.html", []byte("hello")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rc, err := store.Open(ctx, "/index.html")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Expected 'hello', got %q", data)
	}
}

func TestCreateStore_S3RequiresBucket(t *testing.T) {
	cfg := &StoreConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	}

	_, err := CreateStore(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error without bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestCreateStore_S3InvalidOptions(t *testing.T) {
	cfg := &StoreConfig{
		Type: "s3",
		S3:   map[string]any{"bucket": []int{1, 2}},
	}

	if _, err := CreateStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected decode error for malformed S3 options")
	}
}

func TestCreateStore_UnknownType(t *testing.T) {
	_, err := CreateStore(context.Background(), &StoreConfig{Type: "postgres"})
	if err == nil {
		t.Fatal("Expected error for unknown store type")
	}
}
