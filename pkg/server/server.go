package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittoweb/internal/logger"
	"github.com/marmos91/dittoweb/pkg/adapter"
	"github.com/marmos91/dittoweb/pkg/metrics"
	"github.com/marmos91/dittoweb/pkg/store/docroot"
)

// DefaultShutdownTimeout bounds the Stop calls issued on shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// ErrAlreadyServed is returned by Serve when it is called a second time.
var ErrAlreadyServed = errors.New("server: Serve already called")

// WebServer manages the lifecycle of the protocol adapters serving one
// document store, plus the optional metrics endpoint.
//
// Lifecycle:
//  1. Creation: New() with the document store
//  2. Registration: AddAdapter() for each protocol, SetMetricsServer() if wanted
//  3. Startup: Serve() starts everything concurrently
//  4. Shutdown: context cancellation or the failure of any component stops
//     all adapters, then the store is closed
//
// Thread safety:
// WebServer is safe for concurrent use. Serve() may only be called once.
//
// Example usage:
//
//	srv := server.New(store, 30*time.Second)
//	srv.AddAdapter(http.New(httpConfig, handler.New(store), httpMetrics))
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && err != context.Canceled {
//	    log.Fatal(err)
//	}
type WebServer struct {
	// store is shared by every adapter and closed when Serve returns
	store docroot.Store

	// shutdownTimeout bounds stopping all adapters
	shutdownTimeout time.Duration

	// mu protects adapters and metricsServer
	mu            sync.RWMutex
	adapters      []adapter.Adapter
	metricsServer *metrics.Server

	served atomic.Bool
}

// New creates a WebServer for store. A non-positive shutdownTimeout selects
// DefaultShutdownTimeout.
//
// Panics if store is nil.
func New(store docroot.Store, shutdownTimeout time.Duration) *WebServer {
	if store == nil {
		panic("document store cannot be nil")
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}

	return &WebServer{
		store:           store,
		shutdownTimeout: shutdownTimeout,
		adapters:        make([]adapter.Adapter, 0, 2),
	}
}

// AddAdapter registers an adapter to be started by Serve.
//
// Two adapters may not share a protocol, nor a fixed port (port 0 asks for an
// ephemeral port and never conflicts).
//
// Panics if a is nil or Serve has already been called.
func (s *WebServer) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}
	if s.served.Load() {
		panic("cannot add adapter after Serve() has been called")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	s.adapters = append(s.adapters, a)
	logger.Info("Registered %s adapter on port %d", protocol, port)

	return nil
}

// SetMetricsServer makes Serve run ms alongside the adapters.
func (s *WebServer) SetMetricsServer(ms *metrics.Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metricsServer = ms
}

// Serve starts all registered adapters and blocks until ctx is cancelled or
// one of them fails.
//
// Returns:
//   - ctx.Err() if shutdown was triggered by the context
//   - the first component error otherwise
//   - ErrAlreadyServed on a second call
func (s *WebServer) Serve(ctx context.Context) error {
	if !s.served.CompareAndSwap(false, true) {
		return ErrAlreadyServed
	}

	s.mu.RLock()
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	metricsServer := s.metricsServer
	s.mu.RUnlock()

	defer s.closeStore()

	if len(adapters) == 0 {
		return errors.New("no adapters registered; call AddAdapter() before Serve()")
	}

	logger.Info("Starting dittoweb with %d adapter(s)", len(adapters))

	// Components share a context so the failure of one cancels the others.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan componentError, len(adapters)+1)
	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			logger.Info("Starting %s adapter on port %d", a.Protocol(), a.Port())

			if err := a.Serve(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("%s adapter failed: %v", a.Protocol(), err)
				errChan <- componentError{name: a.Protocol() + " adapter", err: err}
				return
			}
			logger.Debug("%s adapter stopped", a.Protocol())
		}(adp)
	}

	if metricsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metricsServer.Start(runCtx); err != nil {
				errChan <- componentError{name: "metrics server", err: err}
			}
		}()
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		shutdownErr = ctx.Err()

	case failure := <-errChan:
		logger.Error("%s failed: %v - shutting down", failure.name, failure.err)
		shutdownErr = fmt.Errorf("%s error: %w", failure.name, failure.err)
	}

	cancel()
	s.stopAllAdapters(adapters)

	logger.Debug("Waiting for all components to complete shutdown")
	wg.Wait()

	logger.Info("dittoweb stopped")
	return shutdownErr
}

type componentError struct {
	name string
	err  error
}

// stopAllAdapters stops adapters in reverse registration order, all bounded
// by the shutdown timeout.
func (s *WebServer) stopAllAdapters(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	logger.Info("Stopping %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		if err := adp.Stop(ctx); err != nil {
			logger.Error("Error stopping %s adapter: %v", adp.Protocol(), err)
		}
	}
}

func (s *WebServer) closeStore() {
	if err := s.store.Close(); err != nil {
		logger.Error("Error closing document store: %v", err)
	}
}

// Adapters returns a copy of the registered adapters.
func (s *WebServer) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}
