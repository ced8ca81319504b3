package signal

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolvedIsImmediatelyDone(t *testing.T) {
	s := Resolved()
	if !s.Settled() {
		t.Fatal("Resolved() should be settled")
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("Done() channel should already be closed")
	}
	if err := s.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() = %v, want nil", err)
	}
}

func TestRejectedCarriesError(t *testing.T) {
	wantErr := errors.New("boom")
	s := Rejected(wantErr)
	if err := s.Wait(context.Background()); err != wantErr {
		t.Fatalf("Wait() = %v, want %v", err, wantErr)
	}
}

func TestResolveSettlesPending(t *testing.T) {
	s := New()
	if s.Settled() {
		t.Fatal("New() should start pending")
	}
	done := make(chan error, 1)
	go func() { done <- s.Wait(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("Wait() returned before Resolve()")
	default:
	}

	s.Resolve()
	if err := <-done; err != nil {
		t.Fatalf("Wait() = %v, want nil", err)
	}
}

func TestTryResolveIdempotent(t *testing.T) {
	s := New()
	if !s.TryResolve() {
		t.Fatal("first TryResolve() should succeed")
	}
	if s.TryResolve() {
		t.Fatal("second TryResolve() should report failure")
	}
	wantErr := errors.New("ignored")
	if s.TryReject(wantErr) {
		t.Fatal("TryReject() on a resolved signal should report failure")
	}
	if err := s.Wait(context.Background()); err != nil {
		t.Fatalf("settlement should remain the original resolve, got %v", err)
	}
}

func TestWaitRespectsContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); err != context.DeadlineExceeded {
		t.Fatalf("Wait() = %v, want DeadlineExceeded", err)
	}
}
