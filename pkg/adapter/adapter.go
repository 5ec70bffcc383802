package adapter

import (
	"context"
)

// Adapter represents a protocol server managed by WebServer.
//
// Each adapter owns its listener and connections and is handed everything it
// needs (request handler, metrics) at construction time.
//
// Lifecycle:
//  1. Creation: adapter is built from its protocol-specific configuration
//  2. Startup: Serve() binds (if not already bound) and blocks until shutdown
//  3. Shutdown: Stop() halts the adapter and releases its resources
//
// Thread safety:
// Implementations must be safe for concurrent use. Stop() may be called
// concurrently with Serve().
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is
	// cancelled, Stop is called or an unrecoverable error occurs.
	//
	// Returns:
	//   - nil after shutdown
	//   - error if startup fails (e.g. the address cannot be bound)
	Serve(ctx context.Context) error

	// Stop halts the server. It must be idempotent and safe to call
	// concurrently with Serve. ctx bounds how long Stop waits for Serve to
	// return.
	Stop(ctx context.Context) error

	// Protocol returns the protocol name for logging and metrics, e.g. "HTTP".
	Protocol() string

	// Port returns the TCP port the adapter listens on, or the configured
	// port if it has not bound yet.
	Port() int
}
