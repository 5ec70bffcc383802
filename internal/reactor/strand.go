package reactor

import "sync"

// Strand serializes handlers on top of a Reactor.
//
// Handlers posted to a strand run one at a time and in the order they were
// posted, even when the reactor is driven by many goroutines. State touched
// only from a single strand therefore needs no locking.
type Strand struct {
	reactor *Reactor

	mu        sync.Mutex
	pending   []func()
	scheduled bool
}

// NewStrand creates a strand bound to r.
func NewStrand(r *Reactor) *Strand {
	return &Strand{reactor: r}
}

// Post appends fn to the strand's queue and schedules the strand on the
// reactor if it is not already scheduled.
func (s *Strand) Post(fn func()) {
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	if s.scheduled {
		s.mu.Unlock()
		return
	}
	s.scheduled = true
	s.mu.Unlock()

	s.schedule()
}

// runOne executes the oldest pending handler and reschedules the strand if
// more are waiting. Only one runOne per strand is ever queued or running.
func (s *Strand) runOne() {
	s.mu.Lock()
	fn := s.pending[0]
	s.pending[0] = nil
	s.pending = s.pending[1:]
	s.mu.Unlock()

	defer s.reschedule()
	fn()
}

func (s *Strand) reschedule() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.scheduled = false
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.schedule()
}

// schedule queues runOne on the reactor. If the reactor refuses it, or Stop
// later drops it, the strand's pending handlers are discarded with it and the
// strand can be scheduled again after Restart.
func (s *Strand) schedule() {
	if !s.reactor.post(s.runOne, s.abandon) {
		s.abandon()
	}
}

func (s *Strand) abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	s.scheduled = false
}
