package http

import (
	"net"
)

// limitListener bounds the number of connections handed out by Accept.
//
// Accept takes a slot from sem before accepting and the slot is returned by
// release when the connection closes. Accept runs on its own goroutine
// (see reactor.AsyncAccept), so waiting for a slot never blocks a worker.
type limitListener struct {
	net.Listener
	sem  chan struct{}
	done <-chan struct{}
}

func (l *limitListener) Accept() (net.Conn, error) {
	select {
	case l.sem <- struct{}{}:
	case <-l.done:
		return nil, net.ErrClosed
	}

	conn, err := l.Listener.Accept()
	if err != nil {
		l.release()
		return nil, err
	}
	return conn, nil
}

func (l *limitListener) release() {
	<-l.sem
}
