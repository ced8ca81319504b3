// Package jsbridge exposes a *wstream.Stream[[]byte] to an embedded JS
// engine as a single global `writer` object with write/close/abort
// methods and ready/closed promises, backed by this package's Go state
// machine rather than a JS-side polyfill.
package jsbridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowlane/wstream"
)

// Runtime is the subset of the embedding engine's JS binding surface a
// Bridge needs: the ability to evaluate JS source and to register Go
// functions as JS globals.
type Runtime interface {
	// Eval evaluates JavaScript source and discards the result.
	Eval(js string) error
	// RegisterFunc registers a Go function as a global JS function. The
	// registered function throws a JS exception carrying the error's
	// message if the Go function's second return value is a non-nil
	// error, matching RegisterFunc's (T, error) convention.
	RegisterFunc(name string, fn any) error
}

// writerJS is evaluated once Install's RegisterFunc calls have landed.
// It exposes `writer` with a Promise-returning write/close/abort and a
// synchronous desiredSize, polling the underlying Go operation to
// completion via queueMicrotask since a synchronous JS-to-Go call cannot
// block on the operation without stalling the single-threaded engine.
// writer.write converts its chunk with a global __bufferSourceToB64,
// which neither this script nor Install defines.
const writerJS = `
(function() {

function __pump(opID, resolve, reject) {
	var state = __writerPoll(opID);
	if (state === 'pending') {
		queueMicrotask(function() { __pump(opID, resolve, reject); });
		return;
	}
	if (state.indexOf('rejected:') === 0) {
		reject(new Error(state.slice('rejected:'.length)));
		return;
	}
	resolve();
}

globalThis.writer = {
	write: function(chunk) {
		var b64 = __bufferSourceToB64(chunk);
		var opID = __writerBeginWrite(b64);
		return new Promise(function(resolve, reject) { __pump(opID, resolve, reject); });
	},
	close: function() {
		var opID = __writerBeginClose();
		return new Promise(function(resolve, reject) { __pump(opID, resolve, reject); });
	},
	abort: function(reason) {
		var opID = __writerBeginAbort(String(reason === undefined ? '' : reason));
		return new Promise(function(resolve, reject) { __pump(opID, resolve, reject); });
	},
	releaseLock: function() { __writerReleaseLock(); },
	get desiredSize() { return __writerDesiredSize(); },
	get ready() {
		var opID = __writerBeginReady();
		return new Promise(function(resolve, reject) { __pump(opID, resolve, reject); });
	},
	get closed() {
		var opID = __writerBeginClosed();
		return new Promise(function(resolve, reject) { __pump(opID, resolve, reject); });
	}
};

})();
`

// Bridge owns the writer lock on a stream and the table of in-flight
// operations the JS side polls by token.
type Bridge struct {
	mu     sync.Mutex
	writer *wstream.Writer[[]byte]
	ops    map[string]wstream.Future
	nextID uint64
}

// New locks stream with GetWriter and returns a Bridge ready to Install
// onto a Runtime.
func New(stream *wstream.Stream[[]byte]) (*Bridge, error) {
	w, err := stream.GetWriter()
	if err != nil {
		return nil, fmt.Errorf("jsbridge: locking stream: %w", err)
	}
	return &Bridge{writer: w, ops: make(map[string]wstream.Future)}, nil
}

func (b *Bridge) register(f wstream.Future) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := fmt.Sprintf("op%d", b.nextID)
	b.ops[id] = f
	return id
}

// poll reports one of "pending", "resolved", or "rejected:<message>" for
// opID, without blocking: a Future's Wait only blocks until its Done
// channel closes, so checking Done first makes this safe to call from a
// single-threaded JS engine's synchronous function-call path.
func (b *Bridge) poll(opID string) (string, error) {
	b.mu.Lock()
	f, ok := b.ops[opID]
	b.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("jsbridge: unknown operation %q", opID)
	}
	select {
	case <-f.Done():
	default:
		return "pending", nil
	}
	b.mu.Lock()
	delete(b.ops, opID)
	b.mu.Unlock()
	if err := f.Wait(context.Background()); err != nil {
		return "rejected:" + err.Error(), nil
	}
	return "resolved", nil
}

// Install registers the Go-backed functions writerJS calls (all but
// __bufferSourceToB64, which is not registered here) and evaluates
// writerJS itself, publishing the global `writer` object.
func (b *Bridge) Install(rt Runtime) error {
	if err := rt.RegisterFunc("__writerBeginWrite", func(dataB64 string) (string, error) {
		chunk, err := decodeB64(dataB64)
		if err != nil {
			return "", err
		}
		return b.register(b.writer.Write(context.Background(), chunk)), nil
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__writerBeginClose", func() (string, error) {
		return b.register(b.writer.Close(context.Background())), nil
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__writerBeginAbort", func(reason string) (string, error) {
		var err error
		if reason != "" {
			err = fmt.Errorf("%s", reason)
		}
		return b.register(b.writer.Abort(context.Background(), err)), nil
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__writerBeginReady", func() (string, error) {
		return b.register(b.writer.Ready()), nil
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__writerBeginClosed", func() (string, error) {
		return b.register(b.writer.Closed()), nil
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__writerPoll", func(opID string) (string, error) {
		return b.poll(opID)
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__writerDesiredSize", func() (float64, error) {
		size, ok := b.writer.DesiredSize()
		if !ok {
			return 0, nil
		}
		return size, nil
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__writerReleaseLock", func() error {
		b.writer.ReleaseLock()
		return nil
	}); err != nil {
		return err
	}
	return rt.Eval(writerJS)
}
