// Package server exposes a block cache over HTTP for 'vtable serve'.
//
// Endpoints:
//   - GET /rows: a page of rows, loaded through the block cache
//   - GET /stats: block cache statistics
//   - GET /healthz: liveness probe
//   - GET /metrics: Prometheus metrics, when enabled
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/vtable/internal/logger"
	"github.com/marmos91/vtable/pkg/blockcache"
)

const (
	DefaultMaxPageRows     = 1000
	DefaultPageRows        = 100
	DefaultWait            = 5 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Options configures a Server.
type Options struct {
	Listen          string
	ShutdownTimeout time.Duration
	MaxPageRows     int
	Wait            time.Duration // default wait for visible rows per request
	Version         string
}

func (o *Options) applyDefaults() {
	if o.MaxPageRows <= 0 {
		o.MaxPageRows = DefaultMaxPageRows
	}
	if o.Wait < 0 {
		o.Wait = 0
	} else if o.Wait == 0 {
		o.Wait = DefaultWait
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Server serves rows of one block cache.
type Server struct {
	opts    Options
	model   *blockcache.Model
	server  *http.Server
	started time.Time

	mu     sync.RWMutex
	source string

	shutdownOnce sync.Once
}

// New creates a Server in a stopped state. Call Start to begin serving.
func New(opts Options, m *blockcache.Model) *Server {
	opts.applyDefaults()
	s := &Server{
		opts:    opts,
		model:   m,
		started: time.Now(),
	}
	s.server = &http.Server{
		Addr:              opts.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// SetSource records the name of the source currently behind the model. It
// is reported by /healthz and /stats.
func (s *Server) SetSource(name string) {
	s.mu.Lock()
	s.source = name
	s.mu.Unlock()
}

func (s *Server) sourceName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Start listens on the configured address and blocks until ctx is canceled
// or the listener fails. Cancellation triggers a graceful shutdown bounded
// by the shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("HTTP server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("HTTP server failed: %w", err)
	}
}

// Stop gracefully shuts the server down. It is safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
			logger.Error("HTTP server shutdown error", logger.Err(err))
			return
		}
		logger.Info("HTTP server stopped gracefully")
	})
	return shutdownErr
}
