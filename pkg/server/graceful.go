// Package server wraps net/http with graceful shutdown and ordered
// teardown of the detector's background components.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/logging"
)

// ShutdownHook releases one component during teardown. Hooks run in
// registration order after the listener has drained.
type ShutdownHook struct {
	Name string
	Stop func(ctx context.Context) error
}

// GracefulServer is an HTTP server that drains connections on SIGINT
// or SIGTERM and then runs registered shutdown hooks.
type GracefulServer struct {
	server       *http.Server
	logger       logging.Logger
	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	hooksMu sync.Mutex
	hooks   []ShutdownHook
}

// NewGracefulServer creates a graceful HTTP server.
func NewGracefulServer(addr string, handler http.Handler, logger logging.Logger) *GracefulServer {
	return &GracefulServer{
		server: &http.Server{
			Addr:           addr,
			Handler:        handler,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}
}

// OnShutdown registers a hook to run after the listener drains.
func (gs *GracefulServer) OnShutdown(name string, stop func(ctx context.Context) error) {
	gs.hooksMu.Lock()
	defer gs.hooksMu.Unlock()
	gs.hooks = append(gs.hooks, ShutdownHook{Name: name, Stop: stop})
}

// Start serves until the listener closes. It blocks; signal handling
// runs in the background.
func (gs *GracefulServer) Start() error {
	go gs.handleSignals()

	gs.logger.Info("starting HTTP server", logging.String("addr", gs.server.Addr))
	if err := gs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and runs the shutdown hooks.
// Safe to call more than once.
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("initiating graceful shutdown", logging.Duration("timeout", timeout))

		if shutdownErr := gs.server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
			gs.logger.Error("error draining connections", logging.Error(shutdownErr))
		}

		gs.hooksMu.Lock()
		hooks := gs.hooks
		gs.hooksMu.Unlock()

		for _, hook := range hooks {
			if hookErr := hook.Stop(ctx); hookErr != nil {
				gs.logger.Error("shutdown hook failed",
					logging.String("component", hook.Name),
					logging.Error(hookErr),
				)
				if err == nil {
					err = hookErr
				}
			}
		}

		gs.logger.Info("shutdown complete")
	})
	return err
}

func (gs *GracefulServer) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	gs.logger.Info("received signal, shutting down", logging.String("signal", sig.String()))
	if err := gs.Shutdown(30 * time.Second); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

// IsShuttingDown reports whether shutdown has been initiated.
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel closes when shutdown is initiated.
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}
