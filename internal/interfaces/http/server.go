// Package http exposes the scoring service over HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/turtacn/leadscore/internal/config"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
)

// Server wraps http.Server with the configured timeouts.
type Server struct {
	srv             *http.Server
	router          http.Handler
	shutdownTimeout time.Duration
	logger          logging.Logger
}

// NewServer creates a Server serving router on cfg.Port.
func NewServer(cfg config.ServerConfig, router http.Handler, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	shutdown := cfg.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = 30 * time.Second
	}
	return &Server{
		router:          router,
		shutdownTimeout: shutdown,
		logger:          logger,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start listens on the configured address. It returns nil after Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. It returns nil after Stop.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("HTTP server listening", logging.String("addr", ln.Addr().String()))
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests within the shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

//Personal.AI order the ending
