// Package server owns the lifecycle of the ephemeral static content server
// the scenarios navigate against.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ErrPortInUse reports that the configured port was already bound. Startup
// does not retry; the caller aborts the run.
var ErrPortInUse = errors.New("server: port already in use")

// Config controls the content server.
type Config struct {
	Host             string        // loopback address, default 127.0.0.1
	Port             int           // 0 picks an ephemeral port
	Root             string        // directory served as site root
	ReadinessTimeout time.Duration // bound on the post-listen readiness probe
	ShutdownTimeout  time.Duration // bound on graceful shutdown before force-close
}

// DefaultConfig returns the settings the harness runs with.
func DefaultConfig() Config {
	return Config{
		Host:             "127.0.0.1",
		Port:             4173,
		ReadinessTimeout: 5 * time.Second,
		ShutdownTimeout:  3 * time.Second,
	}
}

// Server is a running static file server. Obtain one via Start and always
// release it with Stop, deferred on every exit path.
type Server struct {
	cfg      Config
	logger   *zap.Logger
	httpSrv  *http.Server
	listener net.Listener
	addr     string
	stopOnce sync.Once
	stopErr  error
	served   chan error
}

// Start binds the listener, begins serving cfg.Root, and blocks only until
// the server is observably ready (an active connect probe, not a fixed
// sleep). A port conflict surfaces as ErrPortInUse.
func Start(cfg Config, logger *zap.Logger) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ReadinessTimeout <= 0 {
		cfg.ReadinessTimeout = 5 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 3 * time.Second
	}

	bind := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		if isAddrInUse(err) {
			return nil, fmt.Errorf("%w: %s", ErrPortInUse, bind)
		}
		return nil, fmt.Errorf("listen %s: %w", bind, err)
	}

	srv := &Server{
		cfg:      cfg,
		logger:   logger,
		listener: ln,
		addr:     ln.Addr().String(),
		served:   make(chan error, 1),
	}
	srv.httpSrv = &http.Server{
		Handler:           http.FileServer(http.Dir(cfg.Root)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := srv.httpSrv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.served <- err
		}
		close(srv.served)
	}()

	if err := srv.waitReady(); err != nil {
		_ = srv.httpSrv.Close()
		return nil, err
	}

	logger.Info("Content server ready",
		zap.String("addr", srv.addr),
		zap.String("root", cfg.Root))
	return srv, nil
}

// waitReady probes the listener with backoff until a connect succeeds or the
// readiness bound elapses.
func (s *Server) waitReady() error {
	deadline := time.Now().Add(s.cfg.ReadinessTimeout)
	delay := 10 * time.Millisecond
	for {
		conn, err := net.DialTimeout("tcp", s.addr, 250*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		select {
		case serveErr, ok := <-s.served:
			if ok && serveErr != nil {
				return fmt.Errorf("serve %s: %w", s.addr, serveErr)
			}
			return fmt.Errorf("server exited before becoming ready")
		default:
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server not ready within %s", s.cfg.ReadinessTimeout)
		}
		time.Sleep(delay)
		if delay < 200*time.Millisecond {
			delay *= 2
		}
	}
}

// URL returns the base URL scenarios navigate to.
func (s *Server) URL() string {
	return "http://" + s.addr + "/"
}

// Addr returns the bound host:port, useful when Port was 0.
func (s *Server) Addr() string {
	return s.addr
}

// Stop shuts the server down: graceful with a bounded wait, then forced.
// Safe to call more than once; only the first call does the work.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Graceful shutdown incomplete, forcing close", zap.Error(err))
			s.stopErr = s.httpSrv.Close()
			return
		}
		s.logger.Debug("Content server stopped", zap.String("addr", s.addr))
	})
	return s.stopErr
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
