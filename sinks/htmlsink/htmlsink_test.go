package htmlsink

import (
	"context"
	"sync"
	"testing"

	gohtml "golang.org/x/net/html"

	"github.com/flowlane/wstream"
)

func TestHTMLSink_StreamsTokensInOrder(t *testing.T) {
	var mu sync.Mutex
	var tags []string

	sink := Sink(func(tok Token) {
		if tok.Type == gohtml.StartTagToken {
			mu.Lock()
			tags = append(tags, tok.Data)
			mu.Unlock()
		}
	})

	s, err := wstream.NewStream[[]byte](context.Background(), sink, wstream.DefaultQueuingStrategy[[]byte]())
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	w, err := s.GetWriter()
	if err != nil {
		t.Fatalf("GetWriter: %v", err)
	}

	ctx := context.Background()
	for _, chunk := range []string{"<html><body>", "<p>hi</p>", "</body></html>"} {
		if err := w.Write(ctx, []byte(chunk)).Wait(ctx); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(ctx).Wait(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"html", "body", "p"}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tags[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
}
