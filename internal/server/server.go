// Package server owns the HTTP listener lifecycle: serve until the context
// is cancelled, then drain in-flight requests.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/shashiranjanraj/shopfront/pkg/logger"
)

type Options struct {
	Addr            string
	Handler         http.Handler
	ShutdownTimeout time.Duration
}

// Run listens on o.Addr and serves until ctx is done.
func Run(ctx context.Context, o Options) error {
	lis, err := net.Listen("tcp", o.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", o.Addr, err)
	}
	return Serve(ctx, lis, o)
}

// Serve serves on lis until ctx is done, then shuts down gracefully within
// o.ShutdownTimeout (15s when zero). Long-lived SSE and WebSocket
// connections are cut once the timeout passes.
func Serve(ctx context.Context, lis net.Listener, o Options) error {
	srv := &http.Server{
		Handler:           o.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server started", "addr", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	timeout := o.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger.Info("HTTP server shutting down", "timeout", timeout.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
		if !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		logger.Warn("HTTP server: forced close after timeout")
	}
	return nil
}
