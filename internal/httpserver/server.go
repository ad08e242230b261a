// Package httpserver implements the HTTP Server component (spec §4.I): it
// binds to {hostname, port}, serves the composed middleware pipeline, and
// signals readiness to a supervising kernel over stdout.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// readyToken is the single-line machine-parseable signal the kernel scans
// child stdout for (spec §4.J's process contract for children).
const readyToken = "SERVER_READY"

// Config binds the server's listen address.
type Config struct {
	Hostname string
	Port     int

	// ReadTimeout/WriteTimeout/IdleTimeout mirror http.Server's tunables;
	// zero means http.Server's own defaults (no timeout).
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Ready, when non-nil, is called with the bound address the instant the
	// listener is up, before the readiness token is printed. Tests use this
	// instead of scraping stdout.
	Ready func(addr string)
}

// Server wraps http.Server with the kernel's readiness-signalling contract
// and a bounded-grace shutdown, grounded on CometControl's Start/Stop(ctx)
// lifecycle.
type Server struct {
	cfg     Config
	handler http.Handler
	raw     *http.Server
	stdout  func(string)
}

// New constructs a Server that serves handler once started.
func New(cfg Config, handler http.Handler) *Server {
	return &Server{cfg: cfg, handler: handler, stdout: defaultStdout}
}

func defaultStdout(line string) { fmt.Println(line) }

// Start binds the listener and serves until the context is cancelled or
// Stop is called. Returns nil on a clean shutdown, the listen error
// otherwise.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Hostname, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.raw = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	if s.cfg.Ready != nil {
		s.cfg.Ready(ln.Addr().String())
	}
	s.stdout(readyToken)

	errCh := make(chan error, 1)
	go func() { errCh <- s.raw.Serve(ln) }()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.raw.Shutdown(shutdownCtx)
}

// Stop gracefully shuts the server down, bounded by the given context's
// deadline.
func (s *Server) Stop(ctx context.Context) error {
	if s.raw == nil {
		return nil
	}
	return s.raw.Shutdown(ctx)
}
