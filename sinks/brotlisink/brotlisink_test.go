package brotlisink

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/andybalholm/brotli"

	"github.com/flowlane/wstream"
)

func TestBrotliSink_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	s, err := wstream.NewStream[[]byte](context.Background(), Sink(&buf, 0), wstream.DefaultQueuingStrategy[[]byte]())
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	w, err := s.GetWriter()
	if err != nil {
		t.Fatalf("GetWriter: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunks := [][]byte{[]byte("hello "), []byte("brotli "), []byte("world")}
	for _, c := range chunks {
		if err := w.Write(ctx, c).Wait(ctx); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(ctx).Wait(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := brotli.NewReader(&buf)
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading brotli output: %v", err)
	}
	want := "hello brotli world"
	if string(got) != want {
		t.Errorf("decompressed = %q, want %q", got, want)
	}
}
