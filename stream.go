// Package wstream implements a pipelined, backpressure-aware writable
// stream: a single producer hands chunks to a Writer, which a Stream
// delivers to an underlying Sink one at a time, in order, while exposing
// ready/closed signals the producer can use to pace itself.
package wstream

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowlane/wstream/internal/signal"
)

type state int

const (
	stateWritable state = iota
	stateErroring
	stateErrored
	stateClosed
)

// writeRequest pairs a pending write's completion with the context the
// producer's Write call carried, since each write is attributed to its
// own caller-supplied context rather than the stream's construction-time
// one.
type writeRequest struct {
	ctx        context.Context
	completion *signal.Signal
}

type closeRequest struct {
	ctx        context.Context
	completion *signal.Signal
}

type pendingAbort struct {
	completion         *signal.Signal
	reason             error
	wasAlreadyErroring bool
}

// Stream is the writable stream core: state, request bookkeeping, and
// the error/abort cascades that keep all of it consistent across
// concurrently-settling sink operations. A single mutex serializes every
// state transition; sink calls themselves run unlocked in their own
// goroutine and reacquire the mutex only to commit their result.
type Stream[T any] struct {
	mu  sync.Mutex
	ctx context.Context

	state       state
	storedError error

	writer     *Writer[T]
	controller *Controller[T]

	writeRequests        []*writeRequest
	inFlightWriteRequest *writeRequest
	closeRequest         *closeRequest
	inFlightCloseRequest *closeRequest
	pendingAbort         *pendingAbort

	backpressure bool
}

// NewStream constructs a Stream bound to sink, invokes sink.Start in the
// background using ctx, and returns immediately; writes made before
// Start completes are queued, not dropped.
func NewStream[T any](ctx context.Context, sink Sink[T], strategy QueuingStrategy[T]) (*Stream[T], error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: nil context", ErrArgument)
	}
	if strategy.HighWaterMark < 0 {
		return nil, fmt.Errorf("%w: highWaterMark must be non-negative", ErrArgument)
	}
	s := &Stream[T]{ctx: ctx, state: stateWritable}
	s.controller = newController(s, sink, strategy.HighWaterMark, strategy.Size)
	s.controller.start(ctx)
	return s, nil
}

// Locked reports whether a Writer currently holds this stream's lock.
func (s *Stream[T]) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer != nil
}

// Abort requests immediate termination with reason. It rejects if the
// stream is currently locked by a Writer; use the Writer's own Abort in
// that case.
func (s *Stream[T]) Abort(ctx context.Context, reason error) Future {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer != nil {
		return signal.Rejected(fmt.Errorf("%w: stream is locked", ErrState))
	}
	return s.abortLocked(ctx, reason)
}

// Close requests an orderly close. It rejects if the stream is currently
// locked by a Writer; use the Writer's own Close in that case.
func (s *Stream[T]) Close(ctx context.Context) Future {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer != nil {
		return signal.Rejected(fmt.Errorf("%w: stream is locked", ErrState))
	}
	return s.closeLocked(ctx)
}

// GetWriter exclusively locks the stream and returns a handle to it. It
// fails if the stream is already locked.
func (s *Stream[T]) GetWriter() (*Writer[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer != nil {
		return nil, fmt.Errorf("%w: stream already has a writer", ErrState)
	}
	w := newWriter(s)
	s.writer = w
	return w, nil
}

func (s *Stream[T]) hasOperationInFlight() bool {
	return s.inFlightWriteRequest != nil || s.inFlightCloseRequest != nil
}

func (s *Stream[T]) closeQueuedOrInFlight() bool {
	return s.closeRequest != nil || s.inFlightCloseRequest != nil
}

// abortLocked implements abort() with the stream mutex already held.
func (s *Stream[T]) abortLocked(ctx context.Context, reason error) *signal.Signal {
	if s.state == stateClosed || s.state == stateErrored {
		return signal.Resolved()
	}
	if s.pendingAbort != nil {
		return s.pendingAbort.completion
	}
	wasAlreadyErroring := s.state == stateErroring
	completion := signal.New()
	s.pendingAbort = &pendingAbort{completion: completion, reason: reason, wasAlreadyErroring: wasAlreadyErroring}
	if !wasAlreadyErroring {
		s.startErroring(reason)
	}
	_ = ctx // abort has no per-call suspension point of its own; reason delivery uses s.ctx via FinishErroring.
	return completion
}

// closeLocked implements close() with the stream mutex already held.
func (s *Stream[T]) closeLocked(ctx context.Context) *signal.Signal {
	if s.state == stateClosed || s.state == stateErrored || s.closeQueuedOrInFlight() {
		return signal.Rejected(fmt.Errorf("%w: stream is not writable", ErrState))
	}
	completion := signal.New()
	s.closeRequest = &closeRequest{ctx: ctx, completion: completion}
	if s.backpressure && s.state == stateWritable && s.writer != nil {
		s.writer.resolveReady()
	}
	s.controller.enqueueClose()
	s.controller.advanceQueueIfNeeded()
	return completion
}

// startErroring begins the Writable -> Erroring transition.
func (s *Stream[T]) startErroring(err error) {
	s.state = stateErroring
	s.storedError = err
	if s.writer != nil {
		s.writer.rejectReady(err)
	}
	if !s.hasOperationInFlight() && s.controller.started {
		s.finishErroring()
	}
}

// finishErroring completes the Erroring -> Errored transition: it resets
// the queue, rejects every pending write, and either settles or
// dispatches the pending abort before rejecting close/closed.
func (s *Stream[T]) finishErroring() {
	s.state = stateErrored
	s.controller.queue.Reset()
	err := s.storedError

	for _, wr := range s.writeRequests {
		wr.completion.Reject(err)
	}
	s.writeRequests = nil

	pending := s.pendingAbort
	if pending == nil {
		s.rejectCloseAndClosedLocked(err)
		return
	}
	s.pendingAbort = nil

	if pending.wasAlreadyErroring {
		pending.completion.Reject(err)
		s.rejectCloseAndClosedLocked(err)
		return
	}

	abortFn := s.controller.sink.Abort
	reason := pending.reason
	ctx := s.ctx
	go func() {
		var abortErr error
		if abortFn != nil {
			abortErr = abortFn(ctx, reason)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if abortErr == nil {
			pending.completion.Resolve()
		} else {
			pending.completion.Reject(abortErr)
		}
		s.rejectCloseAndClosedLocked(err)
	}()
}

func (s *Stream[T]) rejectCloseAndClosedLocked(err error) {
	if s.closeRequest != nil {
		s.closeRequest.completion.Reject(err)
		s.closeRequest = nil
	}
	if s.writer != nil {
		s.writer.rejectClosed(err)
	}
}

// finishInFlightWrite settles the in-flight write and, on failure,
// dispatches into the error machinery.
func (s *Stream[T]) finishInFlightWrite(err error) {
	req := s.inFlightWriteRequest
	s.inFlightWriteRequest = nil
	if err == nil {
		req.completion.Resolve()
		return
	}
	req.completion.Reject(err)
	switch s.state {
	case stateWritable:
		s.startErroring(err)
	case stateErroring:
		s.finishErroring()
	}
}

// finishInFlightClose settles the in-flight close. On success it also
// resolves any pending abort (a close always wins a race with a
// concurrent abort reason) and clears storedError, since Closed and
// storedError are mutually exclusive.
func (s *Stream[T]) finishInFlightClose(err error) {
	req := s.inFlightCloseRequest
	s.inFlightCloseRequest = nil

	if err == nil {
		wasErroring := s.state == stateErroring
		s.storedError = nil
		s.state = stateClosed
		if wasErroring && s.pendingAbort != nil {
			s.pendingAbort.completion.Resolve()
			s.pendingAbort = nil
		}
		req.completion.Resolve()
		if s.writer != nil {
			s.writer.resolveClosed()
		}
		return
	}

	req.completion.Reject(err)
	if s.pendingAbort != nil {
		s.pendingAbort.completion.Reject(err)
		s.pendingAbort = nil
	}
	switch s.state {
	case stateWritable:
		s.startErroring(err)
	case stateErroring:
		s.finishErroring()
	}
}

// updateBackpressure applies a new backpressure value, swapping the
// writer's ready signal for a fresh pending one when backpressure just
// engaged, or resolving it when backpressure just lifted.
func (s *Stream[T]) updateBackpressure(bp bool) {
	if s.writer != nil && bp != s.backpressure {
		if bp {
			s.writer.resetReady()
		} else {
			s.writer.resolveReady()
		}
	}
	s.backpressure = bp
}

// write implements Writer.write with the stream mutex held. size was
// already computed, unlocked, by the caller.
func (s *Stream[T]) write(ctx context.Context, w *Writer[T], chunk T, size float64) *signal.Signal {
	w.mu.Lock()
	released := w.stream == nil
	w.mu.Unlock()
	if released {
		return signal.Rejected(ErrReleased)
	}

	switch s.state {
	case stateErrored, stateErroring:
		return signal.Rejected(s.storedError)
	case stateClosed:
		return signal.Rejected(fmt.Errorf("%w: stream is closed", ErrState))
	}
	if s.closeQueuedOrInFlight() {
		return signal.Rejected(fmt.Errorf("%w: close already requested", ErrState))
	}

	completion := signal.New()
	s.writeRequests = append(s.writeRequests, &writeRequest{ctx: ctx, completion: completion})

	if err := s.controller.enqueueWithSize(chunk, size); err != nil {
		s.controller.errorIfNeededLocked(err)
		return completion
	}
	if s.state == stateWritable {
		s.updateBackpressure(s.controller.desiredSizeLocked() <= 0)
	}
	s.controller.advanceQueueIfNeeded()
	return completion
}
