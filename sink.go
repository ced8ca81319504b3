package wstream

import "context"

// Sink is the set of callbacks a Stream delivers chunks to. All four are
// optional; a nil callback behaves as an immediate success. Write and
// Start receive the Controller so they can call Error to abort the
// stream from inside sink code.
type Sink[T any] struct {
	Start func(ctx context.Context, c *Controller[T]) error
	Write func(ctx context.Context, chunk T, c *Controller[T]) error
	Close func(ctx context.Context) error
	Abort func(ctx context.Context, reason error) error
}
