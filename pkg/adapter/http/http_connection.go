package http

import (
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittoweb/internal/logger"
	proto "github.com/marmos91/dittoweb/internal/protocol/http"
	"github.com/marmos91/dittoweb/internal/reactor"
)

// bufferSize is the receive buffer of a connection and the most a single
// read can deliver.
const bufferSize = 8192

// HTTPConnection serves a single request on an accepted socket.
//
// The connection reads until the parser has a complete (or malformed)
// request, writes one reply and closes. Every completion handler runs on the
// connection's strand, so buffer, parser, request and reply are never
// accessed concurrently and need no locking.
//
// A connection is referenced only by the closures of its pending operation
// and by the adapter's tracking map. Once it issues no further operation and
// closes its socket, nothing keeps it alive.
type HTTPConnection struct {
	id      string
	adapter *HTTPAdapter
	conn    net.Conn
	strand  *reactor.Strand

	buffer  [bufferSize]byte
	parser  proto.RequestParser
	request proto.Request
	reply   proto.Reply

	// requestDone is when the request became complete; zero for replies
	// sent without one (parse errors, rate limiting).
	requestDone time.Time

	closeOnce sync.Once
}

func newHTTPConnection(adapter *HTTPAdapter, conn net.Conn) *HTTPConnection {
	return &HTTPConnection{
		id:      uuid.NewString(),
		adapter: adapter,
		conn:    conn,
		strand:  reactor.NewStrand(adapter.reactor),
	}
}

// ID returns the connection identifier used in logs.
func (c *HTTPConnection) ID() string {
	return c.id
}

// start issues the first read.
func (c *HTTPConnection) start() {
	c.read()
}

// reject answers with 503 without reading the request.
func (c *HTTPConnection) reject() {
	c.reply = proto.StockReply(proto.StatusServiceUnavailable)
	c.write()
}

func (c *HTTPConnection) read() {
	if timeout := c.adapter.config.ReadTimeout; timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			logger.Debug("HTTP connection %s: set read deadline: %v", c.id, err)
			c.close()
			return
		}
	}

	c.adapter.reactor.AsyncReadSome(c.strand, c.conn, c.buffer[:], c.handleRead)
}

// handleRead feeds the received bytes to the parser and either replies or
// reads again. A read error ends the connection without a reply.
func (c *HTTPConnection) handleRead(n int, err error) {
	defer c.closeOnPanic()

	if n == 0 && err != nil {
		c.logTransportError("read", err)
		c.close()
		return
	}

	result, _ := c.parser.Parse(&c.request, c.buffer[:n])

	switch result {
	case proto.Good:
		c.requestDone = time.Now()
		if logger.IsDebug() {
			logger.Debug("HTTP connection %s: %s %s HTTP/%d.%d",
				c.id, c.request.Method, c.request.URI,
				c.request.HTTPVersionMajor, c.request.HTTPVersionMinor)
		}

		c.adapter.reactor.Go(c.strand, c.handle, c.handleDone)

	case proto.Bad:
		logger.Debug("HTTP connection %s: malformed request", c.id)
		c.adapter.metrics.RecordParseError()

		c.reply = proto.StockReply(proto.StatusBadRequest)
		c.write()

	default:
		if err != nil {
			// The peer stopped sending before the request was complete.
			c.logTransportError("read", err)
			c.close()
			return
		}
		c.read()
	}
}

// handle runs the request handler on its own goroutine, off the reactor
// workers, since document stores may block on disk or network. The
// connection has no other operation pending until handleDone runs.
func (c *HTTPConnection) handle() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("HTTP connection %s: panic in request handler: %v\n%s", c.id, rec, debug.Stack())
			err = fmt.Errorf("request handler panic: %v", rec)
		}
	}()

	c.adapter.handler.HandleRequest(c.adapter.requestCtx, &c.request, &c.reply)
	return nil
}

// handleDone writes the handler's reply, or a 500 if the handler failed.
func (c *HTTPConnection) handleDone(err error) {
	defer c.closeOnPanic()

	if err != nil {
		c.reply = proto.StockReply(proto.StatusInternalServerError)
	}
	c.write()
}

func (c *HTTPConnection) write() {
	if timeout := c.adapter.config.WriteTimeout; timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			logger.Debug("HTTP connection %s: set write deadline: %v", c.id, err)
			c.close()
			return
		}
	}

	c.adapter.reactor.AsyncWrite(c.strand, c.conn, c.reply.ToBuffers(), c.handleWrite)
}

// handleWrite shuts the socket down in both directions once the reply is out
// and releases the connection.
func (c *HTTPConnection) handleWrite(n int64, err error) {
	defer c.closeOnPanic()

	c.adapter.metrics.RecordBytesSent(n)
	if !c.requestDone.IsZero() {
		c.adapter.metrics.RecordRequest(c.request.Method, int(c.reply.Status), time.Since(c.requestDone))
	}

	if err != nil {
		c.logTransportError("write", err)
		c.close()
		return
	}

	c.shutdownBoth()
	c.close()
}

// shutdownBoth performs a TCP shutdown in both directions, flushing the reply
// before the socket is closed.
func (c *HTTPConnection) shutdownBoth() {
	tcp, ok := c.conn.(*net.TCPConn)
	if !ok {
		return
	}
	if err := tcp.CloseWrite(); err != nil {
		logger.Debug("HTTP connection %s: shutdown write: %v", c.id, err)
	}
	if err := tcp.CloseRead(); err != nil {
		logger.Debug("HTTP connection %s: shutdown read: %v", c.id, err)
	}
}

// close closes the socket and tells the adapter. Safe to call more than once
// and from outside the strand.
func (c *HTTPConnection) close() {
	c.closeOnce.Do(func() {
		if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Debug("HTTP connection %s: close: %v", c.id, err)
		}
		c.adapter.connectionClosed(c)
	})
}

// closeOnPanic releases the connection when one of its handlers panics, so
// the socket and its connection slot are not left behind.
func (c *HTTPConnection) closeOnPanic() {
	if rec := recover(); rec != nil {
		logger.Error("HTTP connection %s: panic: %v\n%s", c.id, rec, debug.Stack())
		c.close()
	}
}

func (c *HTTPConnection) logTransportError(op string, err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		logger.Debug("HTTP connection %s closed by client", c.id)
	case errors.As(err, &netErr) && netErr.Timeout():
		logger.Debug("HTTP connection %s timed out during %s: %v", c.id, op, err)
	default:
		logger.Debug("HTTP connection %s %s error: %v", c.id, op, err)
	}
}
