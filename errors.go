package wstream

import "errors"

// Sentinel error kinds. Sink-produced errors are never wrapped in these;
// they are carried as-is so callers can still errors.Is/As against the
// sink's own error values.
var (
	// ErrArgument marks a bad caller-supplied argument: a malformed
	// queuing strategy, a non-finite or negative chunk size, a nil
	// context.
	ErrArgument = errors.New("wstream: invalid argument")

	// ErrState marks an operation rejected because of the stream's
	// current state: write/close on an already-closing stream, close
	// on a locked stream, getWriter on an already-locked stream.
	ErrState = errors.New("wstream: invalid state for this operation")

	// ErrReleased marks an operation attempted on a Writer after
	// ReleaseLock.
	ErrReleased = errors.New("wstream: writer lock has been released")
)
