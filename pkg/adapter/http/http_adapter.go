// Package http implements the HTTP adapter: a static document server built on
// the shared reactor in internal/reactor.
//
// One goroutine per configured thread drains the reactor. Blocking calls are
// parked on their own goroutines and their completions are posted back,
// either to the reactor itself (accept) or to the strand owned by the
// connection they belong to (read, request handling, write). Handlers of one
// connection therefore never run concurrently, while different connections
// are served in parallel.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/marmos91/dittoweb/internal/logger"
	"github.com/marmos91/dittoweb/internal/ratelimiter"
	"github.com/marmos91/dittoweb/internal/reactor"
	"github.com/marmos91/dittoweb/pkg/handler"
	"github.com/marmos91/dittoweb/pkg/metrics"
)

// HTTPAdapter implements adapter.Adapter for HTTP/1.0.
//
// Architecture:
// HTTPAdapter owns the listener and the reactor. It keeps exactly one accept
// pending at all times; every accepted socket becomes an HTTPConnection that
// reads one request, writes one reply and closes.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed (the pending accept fails and is not re-armed)
//  3. Reactor stopped (workers return after their current handler)
//  4. Sockets of live connections closed (parked reads and writes return)
//
// No graceful drain is attempted: replies still being written are cut off.
//
// Thread safety:
// All methods are safe for concurrent use.
type HTTPAdapter struct {
	// config holds the adapter configuration
	config HTTPConfig

	// handler produces replies for parsed requests
	handler handler.Handler

	// metrics receives connection and request observations (never nil)
	metrics metrics.HTTPMetrics

	// reactor dispatches completion handlers to the worker goroutines
	reactor *reactor.Reactor

	// limiter admits new connections; nil when rate limiting is off
	limiter *ratelimiter.RateLimiter

	// listenerMu guards listener and acceptor
	listenerMu sync.Mutex
	listener   net.Listener

	// acceptor is the listener accept calls go through. It is the limit
	// listener when MaxConnections > 0 and listener otherwise.
	acceptor net.Listener

	// connSlots is the MaxConnections semaphore, nil when unlimited
	connSlots *limitListener

	// acceptOnce arms the first accept when Run is first called
	acceptOnce sync.Once

	// connCount is the number of open connections
	connCount atomic.Int32

	// activeConnections maps connection ID to *HTTPConnection so Stop can
	// close sockets still in use
	activeConnections sync.Map

	// shutdownOnce makes initiateShutdown idempotent
	shutdownOnce sync.Once

	// shutdown is closed when shutdown begins
	shutdown chan struct{}

	// runDone is closed when Run returns
	runDone chan struct{}
	running atomic.Bool

	// requestCtx is passed to the request handler and cancelled on shutdown
	requestCtx    context.Context
	cancelRequest context.CancelFunc
}

// New creates an HTTP adapter.
//
// Parameters:
//   - config: Adapter configuration; zero values take defaults
//   - h: Handler producing replies (shared by all connections)
//   - m: Metrics sink; nil disables metrics
//
// Panics if the configuration is invalid, like the other adapter
// constructors. Use the config package to validate user input first.
func New(config HTTPConfig, h handler.Handler, m metrics.HTTPMetrics) *HTTPAdapter {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid HTTP config: %v", err))
	}

	if m == nil {
		m = metrics.NewNoopHTTPMetrics()
	}

	var limiter *ratelimiter.RateLimiter
	if config.RateLimit.RequestsPerSecond > 0 {
		limiter = ratelimiter.New(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst)
		logger.Debug("HTTP rate limit: %d conn/s (burst %d)",
			config.RateLimit.RequestsPerSecond, config.RateLimit.Burst)
	}

	requestCtx, cancelRequest := context.WithCancel(context.Background())

	return &HTTPAdapter{
		config:        config,
		handler:       h,
		metrics:       m,
		reactor:       reactor.New(),
		limiter:       limiter,
		shutdown:      make(chan struct{}),
		runDone:       make(chan struct{}),
		requestCtx:    requestCtx,
		cancelRequest: cancelRequest,
	}
}

// Listen binds the configured address. Go listeners set SO_REUSEADDR on
// Unix, so a restarted server can rebind while old sockets sit in TIME_WAIT.
//
// Listen is called by Serve when needed; calling it first lets the caller
// learn the bound address (Addr) before serving.
func (s *HTTPAdapter) Listen() error {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	if s.listener != nil {
		return nil
	}

	select {
	case <-s.shutdown:
		return errors.New("HTTP adapter is stopped")
	default:
	}

	addr := net.JoinHostPort(s.config.Address, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener on %s: %w", addr, err)
	}

	s.listener = listener
	s.acceptor = listener

	if s.config.MaxConnections > 0 {
		s.connSlots = &limitListener{
			Listener: listener,
			sem:      make(chan struct{}, s.config.MaxConnections),
			done:     s.shutdown,
		}
		s.acceptor = s.connSlots
		logger.Debug("HTTP connection limit: %d", s.config.MaxConnections)
	} else {
		logger.Debug("HTTP connection limit: unlimited")
	}

	logger.Info("HTTP server listening on %s", listener.Addr())
	logger.Debug("HTTP config: threads=%d read_timeout=%v write_timeout=%v",
		s.config.Threads, s.config.ReadTimeout, s.config.WriteTimeout)

	return nil
}

// Serve binds the listener if needed and runs the adapter until ctx is
// cancelled or Stop is called.
func (s *HTTPAdapter) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("HTTP shutdown signal received: %v", ctx.Err())
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	s.Run()
	return nil
}

// Run drives the reactor on config.Threads goroutines, the calling one
// included, and returns once all of them have returned. Listen must have
// succeeded first.
func (s *HTTPAdapter) Run() {
	if !s.running.CompareAndSwap(false, true) {
		logger.Warn("HTTP adapter Run called twice")
		return
	}
	defer close(s.runDone)

	s.acceptOnce.Do(s.startAccept)

	var wg sync.WaitGroup
	for i := 1; i < s.config.Threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.reactor.Run()
		}()
	}

	s.reactor.Run()
	wg.Wait()

	logger.Debug("HTTP reactor workers exited")
}

// startAccept issues the next asynchronous accept.
func (s *HTTPAdapter) startAccept() {
	s.listenerMu.Lock()
	acceptor := s.acceptor
	s.listenerMu.Unlock()

	if acceptor == nil {
		return
	}
	s.reactor.AsyncAccept(s.reactor, acceptor, s.handleAccept)
}

// handleAccept starts a connection for a successful accept and always arms
// the next accept unless the adapter is shutting down.
func (s *HTTPAdapter) handleAccept(conn net.Conn, err error) {
	if err != nil {
		if s.isShuttingDown() || errors.Is(err, net.ErrClosed) {
			return
		}
		logger.Debug("Error accepting HTTP connection: %v", err)
		s.startAccept()
		return
	}

	c := newHTTPConnection(s, conn)
	s.trackConnection(c)

	// Checked after tracking: a shutdown that began earlier may have swept
	// the tracked connections before this one was added.
	if s.isShuttingDown() {
		c.close()
		return
	}

	if !s.limiter.Allow() {
		s.metrics.RecordRateLimited()
		logger.Debug("HTTP connection %s from %s rate limited", c.id, conn.RemoteAddr())
		c.reject()
	} else {
		c.start()
	}

	s.startAccept()
}

func (s *HTTPAdapter) trackConnection(c *HTTPConnection) {
	s.activeConnections.Store(c.id, c)
	current := s.connCount.Add(1)

	s.metrics.RecordConnectionAccepted()
	s.metrics.SetActiveConnections(current)

	logger.Debug("HTTP connection %s accepted from %s (active: %d)",
		c.id, c.conn.RemoteAddr(), current)
}

// connectionClosed is called exactly once per connection, after its socket
// has been closed.
func (s *HTTPAdapter) connectionClosed(c *HTTPConnection) {
	s.activeConnections.Delete(c.id)
	current := s.connCount.Add(-1)

	if s.connSlots != nil {
		s.connSlots.release()
	}

	s.metrics.RecordConnectionClosed()
	s.metrics.SetActiveConnections(current)

	logger.Debug("HTTP connection %s closed (active: %d)", c.id, current)
}

func (s *HTTPAdapter) isShuttingDown() bool {
	select {
	case <-s.shutdown:
		return true
	default:
		return false
	}
}

// initiateShutdown closes the listener, stops the reactor and closes every
// live connection. Safe to call multiple times.
func (s *HTTPAdapter) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("HTTP shutdown initiated")

		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing HTTP listener: %v", err)
			}
		}
		s.listenerMu.Unlock()

		s.cancelRequest()
		s.reactor.Stop()
		s.forceCloseConnections()
	})
}

// forceCloseConnections closes the sockets of all tracked connections so
// goroutines parked in Read or Write return.
func (s *HTTPAdapter) forceCloseConnections() {
	closed := 0
	s.activeConnections.Range(func(key, value any) bool {
		value.(*HTTPConnection).close()
		closed++
		return true
	})

	if closed > 0 {
		logger.Info("Force-closed %d HTTP connection(s)", closed)
	}
}

// Stop shuts the adapter down and waits, bounded by ctx, for Run to return.
func (s *HTTPAdapter) Stop(ctx context.Context) error {
	s.initiateShutdown()

	if !s.running.Load() {
		return nil
	}

	select {
	case <-s.runDone:
		logger.Info("HTTP adapter stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("HTTP adapter stop: %w", ctx.Err())
	}
}

// Protocol returns "HTTP".
func (s *HTTPAdapter) Protocol() string {
	return "HTTP"
}

// Port returns the bound port, or the configured one before Listen.
func (s *HTTPAdapter) Port() int {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return s.config.Port
}

// Addr returns the bound address, or nil before Listen.
func (s *HTTPAdapter) Addr() net.Addr {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ActiveConnections returns the number of open connections.
func (s *HTTPAdapter) ActiveConnections() int32 {
	return s.connCount.Load()
}
