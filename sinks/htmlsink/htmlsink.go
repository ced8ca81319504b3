// Package htmlsink feeds written byte chunks incrementally into a
// golang.org/x/net/html.Tokenizer, invoking a per-token callback as each
// token completes. It is suitable for e.g. incremental link extraction
// from a response body as it arrives, without buffering the whole
// document first.
package htmlsink

import (
	"context"
	"fmt"
	"io"

	gohtml "golang.org/x/net/html"

	"github.com/flowlane/wstream"
)

// Token is the information handed to OnToken for each tokenizer token.
type Token struct {
	Type gohtml.TokenType
	Data string
	Attr []gohtml.Attribute
}

// Sink builds an UnderlyingSink[[]byte] that pipes written chunks into a
// Tokenizer running on a background goroutine (the tokenizer needs a
// blocking io.Reader, so an io.Pipe bridges the chunk-at-a-time write
// API to it). onToken is invoked synchronously from that goroutine for
// every completed token in document order; it must not block.
func Sink(onToken func(Token)) wstream.Sink[[]byte] {
	pr, pw := io.Pipe()
	done := make(chan error, 1)

	return wstream.Sink[[]byte]{
		Start: func(ctx context.Context, c *wstream.Controller[[]byte]) error {
			go func() {
				tokenizer := gohtml.NewTokenizer(pr)
				for {
					tt := tokenizer.Next()
					if tt == gohtml.ErrorToken {
						err := tokenizer.Err()
						if err == io.EOF {
							err = nil
						}
						done <- err
						return
					}
					tok := tokenizer.Token()
					onToken(Token{Type: tt, Data: tok.Data, Attr: tok.Attr})
				}
			}()
			return nil
		},
		Write: func(ctx context.Context, chunk []byte, c *wstream.Controller[[]byte]) error {
			if _, err := pw.Write(chunk); err != nil {
				return fmt.Errorf("htmlsink: write: %w", err)
			}
			return nil
		},
		Close: func(ctx context.Context) error {
			if err := pw.Close(); err != nil {
				return fmt.Errorf("htmlsink: close: %w", err)
			}
			return <-done
		},
		Abort: func(ctx context.Context, reason error) error {
			return pw.CloseWithError(reason)
		},
	}
}
