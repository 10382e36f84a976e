package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/leadscore/internal/interfaces/http/handlers"
	"github.com/turtacn/leadscore/internal/interfaces/http/middleware"
)

// SubmitPath is the batch submission endpoint expected by the caller.
const SubmitPath = "/submitAsyncActionService"

// RouterConfig aggregates the handlers and middleware of the route tree.
type RouterConfig struct {
	// Handlers
	SubmitHandler *handlers.SubmitHandler
	AssetsHandler *handlers.AssetsHandler
	HealthHandler *handlers.HealthHandler

	// Middleware
	Logger        logging.Logger
	LoggingConfig *middleware.LoggingConfig
	HTTPMetrics   middleware.HTTPMetrics
	// SubmitRateLimit throttles submissions per client when set.
	SubmitRateLimit *middleware.RateLimitConfig

	// Infrastructure
	MetricsCollector prometheus.MetricsCollector
	// MetricsPath defaults to /metrics.
	MetricsPath string
}

// NewRouter constructs the HTTP route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.HTTPMetrics != nil {
		r.Use(middleware.Metrics(cfg.HTTPMetrics))
	}
	if cfg.Logger != nil {
		lc := middleware.DefaultLoggingConfig()
		if cfg.LoggingConfig != nil {
			lc = *cfg.LoggingConfig
		}
		r.Use(middleware.RequestLogging(cfg.Logger, lc))
	}
	r.Use(chimw.Recoverer)

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	registerAssetRoutes(r, cfg.AssetsHandler)
	registerSubmitRoutes(r, cfg.SubmitHandler, cfg.SubmitRateLimit)

	return r
}

func registerAssetRoutes(r chi.Router, h *handlers.AssetsHandler) {
	if h == nil {
		return
	}
	r.Get("/status", h.Status)
	r.Get("/getServiceDefinition", h.ServiceDefinition)
	r.Get("/service-definition.json", h.ServiceDefinition)
	r.Get("/brandIcon", h.Icon)
	r.Get("/serviceIcon", h.Icon)
}

func registerSubmitRoutes(r chi.Router, h *handlers.SubmitHandler, limit *middleware.RateLimitConfig) {
	if h == nil {
		return
	}
	r.Group(func(sr chi.Router) {
		if limit != nil && limit.RequestsPerSecond > 0 {
			sr.Use(middleware.RateLimit(*limit))
		}
		sr.Post(SubmitPath, h.Submit)
	})
}

//Personal.AI order the ending
