// Package httpserver runs one named HTTP listener with graceful shutdown.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/gcalmettes/ctfsink/pkg/logging"
)

// Options configures a Server.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *slog.Logger
	// H2C also accepts cleartext HTTP/2 (prior knowledge or Upgrade: h2c).
	H2C bool
}

// Server wraps an http.Server with a synchronous bind and an error channel.
type Server struct {
	name       string
	httpServer *http.Server
	log        *slog.Logger
	ln         net.Listener
	errCh      chan error
}

// New creates a server named name that will listen on addr.
// Requests go through the access-log middleware.
func New(name, addr string, handler http.Handler, opts Options) *Server {
	log := logging.OrNop(opts.Logger).With("component", name)
	handler = logging.Middleware(log, name, handler)
	if opts.H2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	return &Server{
		name: name,
		log:  log,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: opts.ReadTimeout,
			WriteTimeout:      opts.WriteTimeout,
			ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		},
		errCh: make(chan error, 1),
	}
}

// Start binds the listener and serves in the background.
// Bind errors are returned directly; later serve errors arrive on Err.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("%s: listen on %s: %w", s.name, s.httpServer.Addr, err)
	}
	s.ln = ln
	s.log.Info("listening", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", "error", err)
			s.errCh <- fmt.Errorf("%s: %w", s.name, err)
		}
		close(s.errCh)
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.httpServer.Addr
}

// Name returns the server name used in logs.
func (s *Server) Name() string {
	return s.name
}

// Err delivers at most one fatal serve error, then is closed.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Stop gracefully shuts the server down, waiting for in-flight requests
// until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("shutting down")
	return s.httpServer.Shutdown(ctx)
}
