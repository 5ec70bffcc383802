package reactor

import (
	"net"
)

// AsyncAccept waits for the next connection on l and posts handler to ex
// with the result.
func (r *Reactor) AsyncAccept(ex Executor, l net.Listener, handler func(net.Conn, error)) {
	r.beginOperation()
	go func() {
		conn, err := l.Accept()
		r.completeOperation(ex, func() { handler(conn, err) })
	}()
}

// AsyncReadSome reads at most len(buf) bytes from conn and posts handler to
// ex with the number of bytes read. As with a single Read call, fewer bytes
// than requested may be delivered.
//
// buf must not be touched until handler runs.
func (r *Reactor) AsyncReadSome(ex Executor, conn net.Conn, buf []byte, handler func(int, error)) {
	r.beginOperation()
	go func() {
		n, err := conn.Read(buf)
		r.completeOperation(ex, func() { handler(n, err) })
	}()
}

// AsyncWrite writes every byte of bufs to conn as a gathered write and posts
// handler to ex once all of them are written or an error occurs.
//
// The memory behind bufs must stay unchanged until handler runs.
func (r *Reactor) AsyncWrite(ex Executor, conn net.Conn, bufs net.Buffers, handler func(int64, error)) {
	r.beginOperation()
	go func() {
		// WriteTo consumes the slice header, not the underlying memory.
		n, err := bufs.WriteTo(conn)
		r.completeOperation(ex, func() { handler(n, err) })
	}()
}

// Go runs blocking work on its own goroutine and posts handler to ex when it
// returns. It is the building block for operations not covered above.
func (r *Reactor) Go(ex Executor, work func() error, handler func(error)) {
	r.beginOperation()
	go func() {
		err := work()
		r.completeOperation(ex, func() { handler(err) })
	}()
}
