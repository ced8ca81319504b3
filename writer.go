package wstream

import (
	"context"
	"sync"

	"github.com/flowlane/wstream/internal/signal"
)

// Writer is the producer-facing handle obtained from Stream.GetWriter.
// It is the sole entrypoint for writing once a stream is locked. After
// ReleaseLock, Write, Close, Abort and CloseWithErrorPropagation reject
// with ErrReleased, Ready and Closed are rejected with ErrReleased,
// DesiredSize reports ok == false, and ReleaseLock itself is a no-op.
type Writer[T any] struct {
	mu sync.Mutex

	stream *Stream[T]
	ready  *signal.Signal
	closed *signal.Signal
}

// newWriter binds a Writer to s, initializing ready/closed from s's
// current state per the construction table: resolved/pending depending
// on whether backpressure is already in effect, or settled immediately
// if s is already in a terminal state.
func newWriter[T any](s *Stream[T]) *Writer[T] {
	w := &Writer[T]{stream: s}
	switch s.state {
	case stateWritable:
		if s.backpressure {
			w.ready = signal.New()
		} else {
			w.ready = signal.Resolved()
		}
		w.closed = signal.New()
	case stateErroring:
		w.ready = signal.Rejected(s.storedError)
		w.closed = signal.New()
	case stateClosed:
		w.ready = signal.Resolved()
		w.closed = signal.Resolved()
	case stateErrored:
		w.ready = signal.Rejected(s.storedError)
		w.closed = signal.Rejected(s.storedError)
	}
	return w
}

func (w *Writer[T]) boundStream() *Stream[T] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stream
}

// Write enqueues chunk for delivery to the sink, returning a Future that
// settles when the corresponding sink.write call settles (or immediately
// if the stream is already unwritable).
func (w *Writer[T]) Write(ctx context.Context, chunk T) Future {
	s := w.boundStream()
	if s == nil {
		return signal.Rejected(ErrReleased)
	}
	size := s.controller.getChunkSize(chunk)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, w, chunk, size)
}

// Close requests an orderly close of the bound stream.
func (w *Writer[T]) Close(ctx context.Context) Future {
	s := w.boundStream()
	if s == nil {
		return signal.Rejected(ErrReleased)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked(ctx)
}

// Abort requests immediate termination of the bound stream with reason.
func (w *Writer[T]) Abort(ctx context.Context, reason error) Future {
	s := w.boundStream()
	if s == nil {
		return signal.Rejected(ErrReleased)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abortLocked(ctx, reason)
}

// CloseWithErrorPropagation is close() for pipe-like consumers: it folds
// an already-closed or already-closing stream into a resolved Future and
// an Errored stream into a Future carrying storedError, rather than
// surfacing a StateError for either.
func (w *Writer[T]) CloseWithErrorPropagation(ctx context.Context) Future {
	s := w.boundStream()
	if s == nil {
		return signal.Rejected(ErrReleased)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeQueuedOrInFlight() || s.state == stateClosed {
		return signal.Resolved()
	}
	if s.state == stateErrored {
		return signal.Rejected(s.storedError)
	}
	return s.closeLocked(ctx)
}

// ReleaseLock severs the Writer from its Stream, rejecting ready and
// closed with ErrReleased if they have not already settled (and
// replacing them with a freshly rejected signal if they had). It is
// idempotent.
func (w *Writer[T]) ReleaseLock() {
	s := w.boundStream()
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stream == nil {
		return
	}
	if !w.ready.TryReject(ErrReleased) {
		w.ready = signal.Rejected(ErrReleased)
	}
	if !w.closed.TryReject(ErrReleased) {
		w.closed = signal.Rejected(ErrReleased)
	}
	w.stream = nil
	if s.writer == w {
		s.writer = nil
	}
}

// DesiredSize reports the controller's desired size. ok is false when
// the stream is Erroring or Errored, or when the Writer has been
// released, matching the "null" desiredSize a
// producer should treat as unknown/unusable.
func (w *Writer[T]) DesiredSize() (size float64, ok bool) {
	s := w.boundStream()
	if s == nil {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateErrored, stateErroring:
		return 0, false
	case stateClosed:
		return 0, true
	default:
		return s.controller.desiredSizeLocked(), true
	}
}

// Ready is the backpressure signal: pending while the stream should not
// accept more writes, settled once it can.
func (w *Writer[T]) Ready() Future {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ready
}

// Closed settles once the stream reaches Closed (success) or Errored
// (with storedError).
func (w *Writer[T]) Closed() Future {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *Writer[T]) rejectReady(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ready.TryReject(err) {
		w.ready = signal.Rejected(err)
	}
}

func (w *Writer[T]) resetReady() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ready = signal.New()
}

func (w *Writer[T]) resolveReady() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ready.TryResolve() {
		w.ready = signal.Resolved()
	}
}

func (w *Writer[T]) rejectClosed(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed.TryReject(err) {
		w.closed = signal.Rejected(err)
	}
}

func (w *Writer[T]) resolveClosed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed.TryResolve() {
		w.closed = signal.Resolved()
	}
}
