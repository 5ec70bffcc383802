package framework

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/dittoweb/internal/logger"
	httpadapter "github.com/marmos91/dittoweb/pkg/adapter/http"
	"github.com/marmos91/dittoweb/pkg/config"
	"github.com/marmos91/dittoweb/pkg/handler"
	"github.com/marmos91/dittoweb/pkg/server"
	"github.com/marmos91/dittoweb/pkg/store/docroot"
)

// StoreType represents the document store backing a test server.
type StoreType string

const (
	StoreTypeMemory     StoreType = "memory"
	StoreTypeFilesystem StoreType = "filesystem"
	StoreTypeBadger     StoreType = "badger"
)

// AllStoreTypes lists the store types that need no external service.
var AllStoreTypes = []StoreType{StoreTypeMemory, StoreTypeFilesystem, StoreTypeBadger}

// TestServerConfig holds configuration for the test server.
type TestServerConfig struct {
	Store     StoreType
	Threads   int
	Documents map[string][]byte
	LogLevel  string

	// HTTP overrides adapter settings; Address and Port are always loopback
	// and ephemeral.
	HTTP httpadapter.HTTPConfig
}

// TestServer runs the full dittoweb stack in-process: a store built through
// pkg/config, the HTTP adapter and the WebServer lifecycle.
type TestServer struct {
	t       testing.TB
	config  TestServerConfig
	store   docroot.WritableStore
	adapter *httpadapter.HTTPAdapter
	server  *server.WebServer

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	addr   string
}

// NewTestServer creates a stopped test server.
func NewTestServer(t testing.TB, cfg TestServerConfig) *TestServer {
	t.Helper()

	if cfg.Store == "" {
		cfg.Store = StoreTypeMemory
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "ERROR"
	}

	return &TestServer{t: t, config: cfg}
}

// Start builds the stack, seeds the documents and starts serving.
func (ts *TestServer) Start() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.cancel != nil {
		return fmt.Errorf("server already started")
	}

	logger.SetLevel(ts.config.LogLevel)

	cfg := config.GetDefaultConfig()
	cfg.Store.Type = string(ts.config.Store)
	switch ts.config.Store {
	case StoreTypeFilesystem:
		cfg.Store.Filesystem["path"] = ts.t.TempDir()
	case StoreTypeBadger:
		cfg.Store.Badger = map[string]any{"db_path": filepath.Join(ts.t.TempDir(), "docs")}
	}

	cfg.Adapters.HTTP = ts.config.HTTP
	cfg.Adapters.HTTP.Enabled = true
	cfg.Adapters.HTTP.Address = "127.0.0.1"
	cfg.Adapters.HTTP.Port = 0
	if ts.config.Threads > 0 {
		cfg.Adapters.HTTP.Threads = ts.config.Threads
	}

	ctx, cancel := context.WithCancel(context.Background())

	store, err := config.CreateStore(ctx, &cfg.Store)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create %s store: %w", ts.config.Store, err)
	}

	for path, body := range ts.config.Documents {
		if err := store.Put(ctx, path, body); err != nil {
			cancel()
			_ = store.Close()
			return fmt.Errorf("failed to seed %s: %w", path, err)
		}
	}

	adapters, err := config.CreateAdapters(cfg, handler.New(store), nil)
	if err != nil {
		cancel()
		_ = store.Close()
		return err
	}

	adp := adapters[0].(*httpadapter.HTTPAdapter)
	if err := adp.Listen(); err != nil {
		cancel()
		_ = store.Close()
		return err
	}

	srv := server.New(store, 5*time.Second)
	if err := srv.AddAdapter(adp); err != nil {
		cancel()
		_ = store.Close()
		return err
	}

	ts.store = store
	ts.adapter = adp
	ts.server = srv
	ts.cancel = cancel
	ts.addr = adp.Addr().String()

	ts.wg.Add(1)
	go func() {
		defer ts.wg.Done()
		if err := srv.Serve(ctx); err != nil && err != context.Canceled {
			ts.t.Logf("Server error: %v", err)
		}
	}()

	ts.t.Logf("Serving %s store on %s", ts.config.Store, ts.addr)
	return nil
}

// Stop shuts the server down and waits for it to exit.
func (ts *TestServer) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.cancel == nil {
		return
	}
	ts.cancel()

	done := make(chan struct{})
	go func() {
		ts.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		ts.t.Errorf("Server did not stop within 10s")
	}
	ts.cancel = nil
}

// Addr returns the host:port the server listens on.
func (ts *TestServer) Addr() string {
	return ts.addr
}

// Adapter returns the running HTTP adapter.
func (ts *TestServer) Adapter() *httpadapter.HTTPAdapter {
	return ts.adapter
}
