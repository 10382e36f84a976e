// Package grpc serves the standard gRPC health protocol for the scoring
// service. Readiness follows the service state so orchestrators stop routing
// submissions to an instance that is draining.
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/turtacn/leadscore/internal/config"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
)

// ServiceName is the health service name reported for the scoring pipeline.
const ServiceName = "leadscore.v1.Scoring"

const defaultGracefulTimeout = 10 * time.Second

var defaultKeepaliveParams = keepalive.ServerParameters{
	MaxConnectionIdle:     15 * time.Minute,
	MaxConnectionAge:      30 * time.Minute,
	MaxConnectionAgeGrace: 5 * time.Second,
	Time:                  5 * time.Minute,
	Timeout:               1 * time.Second,
}

// Option configures the gRPC Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger          logging.Logger
	keepaliveParams keepalive.ServerParameters
	gracefulTimeout time.Duration
	reflection      bool
	listener        net.Listener
}

// WithLogger sets the logger for the gRPC server.
func WithLogger(l logging.Logger) Option {
	return func(o *serverOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the graceful shutdown timeout.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.gracefulTimeout = d
		}
	}
}

// WithReflection registers the reflection service.
func WithReflection(enabled bool) Option {
	return func(o *serverOptions) {
		o.reflection = enabled
	}
}

// WithListener serves on l instead of binding the configured port.
func WithListener(l net.Listener) Option {
	return func(o *serverOptions) {
		o.listener = l
	}
}

// ReadinessProbe reports whether the scoring service accepts work.
type ReadinessProbe func() bool

// Server is a gRPC server exposing grpc.health.v1.
type Server struct {
	grpcServer   *grpc.Server
	listener     net.Listener
	opts         *serverOptions
	healthServer *health.Server

	mu      sync.Mutex
	started bool
	serving bool
}

// NewServer binds the listener and registers the health service. The server
// starts NOT_SERVING until SetServing(true) or a readiness watch flips it.
func NewServer(cfg config.GRPCConfig, opts ...Option) (*Server, error) {
	sopts := &serverOptions{
		keepaliveParams: defaultKeepaliveParams,
		gracefulTimeout: defaultGracefulTimeout,
	}
	for _, o := range opts {
		o(sopts)
	}
	if sopts.logger == nil {
		sopts.logger = logging.NewNopLogger()
	}

	lis := sopts.listener
	if lis == nil {
		addr := fmt.Sprintf(":%d", cfg.Port)
		var err error
		lis, err = net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
	}

	gs := grpc.NewServer(
		grpc.KeepaliveParams(sopts.keepaliveParams),
		grpc.ChainUnaryInterceptor(
			recoveryUnaryInterceptor(sopts.logger),
			loggingUnaryInterceptor(sopts.logger),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	if sopts.reflection {
		reflection.Register(gs)
		sopts.logger.Info("grpc reflection service registered")
	}

	return &Server{
		grpcServer:   gs,
		listener:     lis,
		opts:         sopts,
		healthServer: hs,
	}, nil
}

// SetServing updates the overall and scoring service health status.
func (s *Server) SetServing(serving bool) {
	s.mu.Lock()
	changed := s.serving != serving
	s.serving = serving
	s.mu.Unlock()

	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.healthServer.SetServingStatus("", st)
	s.healthServer.SetServingStatus(ServiceName, st)
	if changed {
		s.opts.logger.Info("grpc health status changed", logging.String("status", st.String()))
	}
}

// WatchReadiness polls probe every interval and mirrors it into the health
// status until ctx is done.
func (s *Server) WatchReadiness(ctx context.Context, probe ReadinessProbe, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	s.SetServing(probe())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SetServing(probe())
		}
	}
}

// Start serves until Stop. It blocks.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true
	s.mu.Unlock()

	s.opts.logger.Info("grpc server starting", logging.String("address", s.Addr()))
	return s.grpcServer.Serve(s.listener)
}

// Stop marks the server NOT_SERVING and stops gracefully, forcing the stop
// when the graceful period or ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return s.listener.Close()
	}

	s.opts.logger.Info("grpc server stopping")
	s.healthServer.Shutdown()

	gracefulCtx, cancel := context.WithTimeout(ctx, s.opts.gracefulTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.opts.logger.Info("grpc server stopped gracefully")
	case <-gracefulCtx.Done():
		s.opts.logger.Warn("grpc graceful stop timed out, forcing stop")
		s.grpcServer.Stop()
	}
	return nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func recoveryUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc panic recovered",
					logging.String("method", info.FullMethod),
					logging.String("panic", fmt.Sprintf("%v", r)),
					logging.String("stack", string(debug.Stack())),
				)
				err = status.Errorf(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

func isHealthCheck(method string) bool {
	return strings.HasPrefix(method, "/grpc.health.v1.Health/")
}

func loggingUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if isHealthCheck(info.FullMethod) {
			return handler(ctx, req)
		}

		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc request",
			logging.String("method", info.FullMethod),
			logging.Duration("duration", time.Since(start)),
			logging.String("code", status.Code(err).String()),
		)
		return resp, err
	}
}

//Personal.AI order the ending
