package reconcile

import "sync"

// Serial runs submitted functions one at a time in submission order without ever
// blocking the submitter on another function's execution.
//
// The goroutine whose submission finds Serial idle becomes the drainer and runs
// queued functions until the queue is empty; concurrent submitters only enqueue
// and return. Functions may submit further work to the same Serial (for example a
// consumer callback disposing its reconciler); that work runs after the current
// function returns.
//
// The queue is unbounded: while a function blocks, submissions accumulate.
type Serial struct {
	mu       sync.Mutex
	queue    []func()
	draining bool
}

// Do enqueues fn and drains the queue if no other goroutine is doing so.
func (s *Serial) Do(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.queue = nil
			s.mu.Unlock()

			return
		}
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		next()
	}
}

// Pending returns the number of functions queued behind the one running.
func (s *Serial) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.queue)
}
