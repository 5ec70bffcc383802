// Package reactor provides a small completion-dispatch loop shared by a pool
// of worker goroutines.
//
// Blocking socket calls are parked on their own goroutines (the Go netpoller
// does the readiness work) and their completion handlers are posted back to
// the reactor, where any worker calling Run may execute them. A Strand layered
// on top guarantees that handlers posted through it never run concurrently.
package reactor

import (
	"runtime/debug"
	"sync"

	"github.com/marmos91/dittoweb/internal/logger"
)

// Executor accepts handlers for later execution.
//
// Both *Reactor and *Strand implement Executor, so asynchronous operations
// can complete either directly on the reactor or serialized through a strand.
type Executor interface {
	Post(fn func())
}

// Reactor is a handler queue drained by every goroutine that calls Run.
//
// Outstanding work is the sum of queued handlers, handlers currently running
// and pending asynchronous operations. Run returns once Stop has been called
// or once no outstanding work remains.
//
// Thread safety:
// All methods are safe for concurrent use.
type Reactor struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []entry
	work    int
	stopped bool
}

// entry is a queued handler. discard, when set, is called instead of fn if
// Stop drops the handler.
type entry struct {
	fn      func()
	discard func()
}

// New creates an idle reactor.
func New() *Reactor {
	r := &Reactor{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Post enqueues fn for execution by one of the goroutines running the reactor.
//
// Handlers posted after Stop are discarded.
func (r *Reactor) Post(fn func()) {
	r.post(fn, nil)
}

// post enqueues fn and reports whether it was accepted. discard is run if a
// later Stop drops fn before a worker picks it up.
func (r *Reactor) post(fn, discard func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return false
	}

	r.queue = append(r.queue, entry{fn: fn, discard: discard})
	r.work++
	r.cond.Signal()
	return true
}

// Run executes handlers until the reactor is stopped or runs out of work.
//
// Run may be called from any number of goroutines at once; each handler is
// executed by exactly one of them.
func (r *Reactor) Run() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		for !r.stopped && len(r.queue) == 0 && r.work > 0 {
			r.cond.Wait()
		}

		if r.stopped || r.work == 0 {
			// Wake the other workers so they can observe the same condition.
			r.cond.Broadcast()
			return
		}

		fn := r.queue[0].fn
		r.queue[0] = entry{}
		r.queue = r.queue[1:]

		r.mu.Unlock()
		r.invoke(fn)
		r.mu.Lock()

		r.finishLocked()
	}
}

// invoke runs a handler with panic recovery so that a single misbehaving
// handler cannot take a worker down.
func (r *Reactor) invoke(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Panic in reactor handler: %v\n%s", rec, debug.Stack())
		}
	}()

	fn()
}

// Stop makes every call to Run return as soon as its current handler
// finishes. Queued handlers are discarded. Stop is idempotent.
func (r *Reactor) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}

	r.stopped = true
	dropped := r.queue
	r.work -= len(dropped)
	r.queue = nil
	r.cond.Broadcast()
	r.mu.Unlock()

	for _, e := range dropped {
		if e.discard != nil {
			e.discard()
		}
	}
}

// Stopped reports whether Stop has been called.
func (r *Reactor) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

// Restart clears the stopped flag so that Run can be called again.
func (r *Reactor) Restart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = false
}

// beginOperation registers a pending asynchronous operation.
func (r *Reactor) beginOperation() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.work++
}

// completeOperation posts the completion handler for a pending operation to
// ex and then retires the operation. Posting first keeps the work count from
// touching zero in between.
func (r *Reactor) completeOperation(ex Executor, fn func()) {
	ex.Post(fn)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishLocked()
}

func (r *Reactor) finishLocked() {
	if r.work > 0 {
		r.work--
	}
	if r.work == 0 {
		r.cond.Broadcast()
	}
}
