package wstream

import "context"

// Future is the minimal promise-shaped view this package exposes to
// producers: a one-shot operation that settles exactly once, either
// successfully or with an error. *internal/signal.Signal satisfies this
// interface directly.
type Future interface {
	Wait(ctx context.Context) error
	Done() <-chan struct{}
}
