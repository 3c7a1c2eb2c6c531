package server

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/logging"
)

func newTestServer() *GracefulServer {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return NewGracefulServer("127.0.0.1:0", handler, logging.Nop{})
}

func TestGracefulServer_ShutdownRunsHooksInOrder(t *testing.T) {
	gs := newTestServer()

	var order []string
	gs.OnShutdown("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	gs.OnShutdown("second", func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	if err := gs.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("hooks ran in order %v, want [first second]", order)
	}
}

func TestGracefulServer_ShutdownIdempotent(t *testing.T) {
	gs := newTestServer()

	calls := 0
	gs.OnShutdown("counter", func(ctx context.Context) error {
		calls++
		return nil
	})

	if err := gs.Shutdown(time.Second); err != nil {
		t.Fatalf("first Shutdown() error = %v", err)
	}
	if err := gs.Shutdown(time.Second); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}

	if calls != 1 {
		t.Errorf("hook ran %d times, want 1", calls)
	}
	if !gs.IsShuttingDown() {
		t.Error("IsShuttingDown() = false after Shutdown")
	}
}

func TestGracefulServer_ShutdownReportsHookError(t *testing.T) {
	gs := newTestServer()

	hookErr := errors.New("component refused to stop")
	gs.OnShutdown("bad", func(ctx context.Context) error { return hookErr })

	ran := false
	gs.OnShutdown("after", func(ctx context.Context) error {
		ran = true
		return nil
	})

	err := gs.Shutdown(time.Second)
	if !errors.Is(err, hookErr) {
		t.Errorf("Shutdown() error = %v, want %v", err, hookErr)
	}
	if !ran {
		t.Error("hook after a failing hook did not run")
	}
}

func TestGracefulServer_ShutdownChannelCloses(t *testing.T) {
	gs := newTestServer()

	select {
	case <-gs.ShutdownChannel():
		t.Fatal("shutdown channel closed before Shutdown")
	default:
	}

	if err := gs.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	select {
	case <-gs.ShutdownChannel():
	case <-time.After(time.Second):
		t.Error("shutdown channel did not close")
	}
}
