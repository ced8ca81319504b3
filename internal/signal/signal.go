// Package signal implements the "Deferred Signal" primitive: a settable,
// re-creatable async completion used for the promise-shaped values a
// writable stream exposes (ready, closed, per-write completions).
package signal

import (
	"context"
	"sync"
)

// Signal is a one-shot completion that starts pending and settles exactly
// once, either successfully (err == nil) or with an error. It is safe for
// concurrent use; multiple goroutines may Wait on it while another settles
// it.
type Signal struct {
	mu      sync.Mutex
	done    chan struct{}
	err     error
	settled bool
}

// New returns a pending Signal.
func New() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Resolved returns an already-settled, successful Signal.
func Resolved() *Signal {
	s := New()
	s.settled = true
	close(s.done)
	return s
}

// Rejected returns an already-settled, failed Signal.
func Rejected(err error) *Signal {
	s := New()
	s.settled = true
	s.err = err
	close(s.done)
	return s
}

// Resolve settles s successfully. A no-op if s is already settled.
func (s *Signal) Resolve() {
	s.TryResolve()
}

// Reject settles s with err. A no-op if s is already settled.
func (s *Signal) Reject(err error) {
	s.TryReject(err)
}

// TryResolve settles s successfully and reports whether this call performed
// the settlement (false if s was already settled).
func (s *Signal) TryResolve() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settled {
		return false
	}
	s.settled = true
	close(s.done)
	return true
}

// TryReject settles s with err and reports whether this call performed the
// settlement (false if s was already settled).
func (s *Signal) TryReject(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settled {
		return false
	}
	s.settled = true
	s.err = err
	close(s.done)
	return true
}

// Settled reports whether s has already resolved or rejected.
func (s *Signal) Settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

// Done returns a channel closed once s settles.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until s settles or ctx is done, returning s's settlement
// error (nil on success) or ctx.Err().
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		s.mu.Lock()
		err := s.err
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
