// Package wsocket adapts a github.com/coder/websocket connection into a
// wstream.Sink[[]byte]: every written chunk becomes one binary WebSocket
// message, close sends a normal-closure frame, and abort sends an
// internal-error closure instead of attempting a graceful close.
package wsocket

import (
	"context"
	"log"
	"time"

	"github.com/coder/websocket"

	"github.com/flowlane/wstream"
)

// writeTimeout bounds each individual message send.
const writeTimeout = 5 * time.Second

// Sink builds an UnderlyingSink that writes each chunk as a binary
// message on conn. Close sends code 1000 (normal closure); Abort sends
// code 1011 (internal error) with reason as the close reason.
func Sink(conn *websocket.Conn) wstream.Sink[[]byte] {
	return wstream.Sink[[]byte]{
		Write: func(ctx context.Context, chunk []byte, c *wstream.Controller[[]byte]) error {
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			defer cancel()
			return conn.Write(writeCtx, websocket.MessageBinary, chunk)
		},
		Close: func(ctx context.Context) error {
			return conn.Close(websocket.StatusNormalClosure, "")
		},
		Abort: func(ctx context.Context, reason error) error {
			msg := ""
			if reason != nil {
				msg = reason.Error()
				if len(msg) > 123 {
					// WebSocket close reasons are limited to 123 bytes.
					msg = msg[:123]
				}
			}
			if err := conn.Close(websocket.StatusInternalError, msg); err != nil {
				log.Printf("wsocket: abort close error: %v", err)
				return err
			}
			return nil
		},
	}
}
