package wsocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/flowlane/wstream"
)

func TestWSocketSink_WritesBinaryMessagesInOrder(t *testing.T) {
	received := make(chan []byte, 8)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "test done")
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			received <- append([]byte(nil), data...)
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientConn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):], nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer clientConn.Close(websocket.StatusNormalClosure, "")

	s, err := wstream.NewStream[[]byte](ctx, Sink(clientConn), wstream.DefaultQueuingStrategy[[]byte]())
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	writer, err := s.GetWriter()
	if err != nil {
		t.Fatalf("GetWriter: %v", err)
	}

	for _, chunk := range [][]byte{[]byte("a"), []byte("b"), []byte("c")} {
		if err := writer.Write(ctx, chunk).Wait(ctx); err != nil {
			t.Fatalf("Write(%q): %v", chunk, err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		select {
		case got := <-received:
			if string(got) != want {
				t.Errorf("received %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	if err := writer.Close(ctx).Wait(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
