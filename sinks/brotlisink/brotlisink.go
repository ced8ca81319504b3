// Package brotlisink streams written chunks through a brotli encoder into
// an underlying io.Writer, flushing and closing the encoder when the
// stream closes.
package brotlisink

import (
	"context"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/flowlane/wstream"
)

// Sink builds an UnderlyingSink[[]byte] that brotli-compresses each
// written chunk into dst as it arrives. Close flushes and closes the
// encoder; Abort best-effort closes the encoder without requiring the
// flush to succeed, since an aborted stream's output is discarded anyway.
func Sink(dst io.Writer, quality int) wstream.Sink[[]byte] {
	var w *brotli.Writer

	return wstream.Sink[[]byte]{
		Start: func(ctx context.Context, c *wstream.Controller[[]byte]) error {
			if quality > 0 {
				w = brotli.NewWriterLevel(dst, quality)
			} else {
				w = brotli.NewWriter(dst)
			}
			return nil
		},
		Write: func(ctx context.Context, chunk []byte, c *wstream.Controller[[]byte]) error {
			if _, err := w.Write(chunk); err != nil {
				return fmt.Errorf("brotlisink: write: %w", err)
			}
			return nil
		},
		Close: func(ctx context.Context) error {
			if err := w.Close(); err != nil {
				return fmt.Errorf("brotlisink: close: %w", err)
			}
			return nil
		},
		Abort: func(ctx context.Context, reason error) error {
			_ = w.Close()
			return nil
		},
	}
}
