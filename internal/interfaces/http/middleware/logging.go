// Package middleware holds the HTTP middleware of the scoring service.
package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
)

// LoggingConfig holds configuration for the request logging middleware.
type LoggingConfig struct {
	// SkipPaths are paths that should not be logged (e.g., /healthz, /metrics).
	SkipPaths []string

	// SlowThreshold is the duration above which a request is logged at warn.
	SlowThreshold time.Duration
}

// DefaultLoggingConfig returns the default logging configuration.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics", "/status"},
		SlowThreshold: 3 * time.Second,
	}
}

// RequestLogging returns middleware that logs each completed request.
func RequestLogging(logger logging.Logger, config LoggingConfig) func(http.Handler) http.Handler {
	skipSet := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skipSet[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipSet[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			duration := time.Since(start)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", status),
				logging.Duration("duration", duration),
				logging.Int("bytes", ww.BytesWritten()),
				logging.String("remote_addr", r.RemoteAddr),
				logging.String("request_id", chimw.GetReqID(r.Context())),
			}
			if ua := r.UserAgent(); ua != "" {
				fields = append(fields, logging.String("user_agent", ua))
			}

			switch {
			case status >= 500:
				logger.Error("HTTP request completed with server error", fields...)
			case status >= 400:
				logger.Warn("HTTP request completed with client error", fields...)
			case config.SlowThreshold > 0 && duration >= config.SlowThreshold:
				logger.Warn("HTTP request completed (slow)", fields...)
			default:
				logger.Info("HTTP request completed", fields...)
			}
		})
	}
}

//Personal.AI order the ending
