package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
)

type stubReconciler struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (s *stubReconciler) ReconcileAll(ctx context.Context) ([]model.ReconcileReport, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	return []model.ReconcileReport{{ArticleID: "a1", CounterBefore: 3, CounterAfter: 2}}, s.err
}

func TestNewRejectsBadCron(t *testing.T) {
	if _, err := NewReconcile("every night", &stubReconciler{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for invalid cron")
	}
}

func TestRunOnce(t *testing.T) {
	stub := &stubReconciler{err: errors.New("boom")}
	w, err := NewReconcile("0 3 * * *", stub, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ran, err := w.RunOnce(context.Background())
	if !ran || err == nil {
		t.Fatalf("expected a run returning the reconcile error, got ran=%v err=%v", ran, err)
	}
	if stub.calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", stub.calls.Load())
	}
}

func TestRunOnceSkipsWhileRunning(t *testing.T) {
	stub := &stubReconciler{release: make(chan struct{})}
	w, err := NewReconcile("0 3 * * *", stub, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = w.RunOnce(context.Background())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for stub.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("first run never started")
		}
		time.Sleep(time.Millisecond)
	}

	ran, err := w.RunOnce(context.Background())
	if ran || err != nil {
		t.Fatalf("overlapping run should be skipped, got ran=%v err=%v", ran, err)
	}

	close(stub.release)
	<-done
	if stub.calls.Load() != 1 {
		t.Fatalf("expected exactly one reconcile, got %d", stub.calls.Load())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	w, err := NewReconcile("0 3 * * *", &stubReconciler{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
