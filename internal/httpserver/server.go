// Package httpserver runs the HTTP listener and drains it on shutdown.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// DefaultShutdownTimeout bounds graceful shutdown when none is configured.
const DefaultShutdownTimeout = 10 * time.Second

// Server owns an http.Server and its shutdown policy.
type Server struct {
	inner   *http.Server
	logger  *slog.Logger
	timeout time.Duration
}

// New constructs a server listening on port. shutdownTimeout bounds how long
// in-flight requests may run once shutdown starts.
func New(port int, handler http.Handler, logger *slog.Logger, shutdownTimeout time.Duration) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &Server{
		inner: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger:  logger,
		timeout: shutdownTimeout,
	}
}

// Run listens on the configured port until ctx is cancelled or the process
// receives SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting http server", "addr", s.inner.Addr)
	return s.run(ctx, s.inner.ListenAndServe)
}

// RunListener is Run over an existing listener.
func (s *Server) RunListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting http server", "addr", ln.Addr().String())
	return s.run(ctx, func() error { return s.inner.Serve(ln) })
}

func (s *Server) run(ctx context.Context, serve func() error) error {
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- serve()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, shutting down server")
	case sig := <-signalCh:
		s.logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.inner.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
