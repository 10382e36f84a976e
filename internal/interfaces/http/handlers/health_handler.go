package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	componentHealthy   = "healthy"
	componentUnhealthy = "unhealthy"
)

// HealthChecker reports the health of one dependency of the scoring pipeline.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc struct {
	CheckerName string
	Fn          func(ctx context.Context) error
}

func (c CheckFunc) Name() string { return c.CheckerName }

func (c CheckFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// HealthOption configures a HealthHandler.
type HealthOption func(*HealthHandler)

// WithPipelineStats attaches a snapshot of the dispatcher to readiness
// responses.
func WithPipelineStats(fn func() interface{}) HealthOption {
	return func(h *HealthHandler) { h.pipeline = fn }
}

// WithCheckTimeout bounds one readiness probe. Default 5s.
func WithCheckTimeout(d time.Duration) HealthOption {
	return func(h *HealthHandler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checkers []HealthChecker
	pipeline func() interface{}
	version  string
	startAt  time.Time
	timeout  time.Duration
}

func NewHealthHandler(version string, checkers []HealthChecker, opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{
		checkers: checkers,
		version:  version,
		startAt:  time.Now(),
		timeout:  5 * time.Second,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse lists every checked component and, when configured, the
// current dispatcher counters.
type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
	Pipeline   interface{}               `json:"pipeline,omitempty"`
}

type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Liveness handles GET /healthz. It returns 200 while the process runs.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness handles GET /readyz. Any unhealthy component yields 503.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	resp := ReadinessResponse{Status: "ready"}
	if h.pipeline != nil {
		resp.Pipeline = h.pipeline()
	}
	if len(h.checkers) == 0 {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp.Components = h.checkAll(ctx)
	status := http.StatusOK
	for _, c := range resp.Components {
		if c.Status != componentHealthy {
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, status, resp)
}

// checkAll probes every checker concurrently. A failing check never cancels
// the others.
func (h *HealthHandler) checkAll(ctx context.Context) map[string]ComponentCheck {
	var (
		mu      sync.Mutex
		results = make(map[string]ComponentCheck, len(h.checkers))
		g       errgroup.Group
	)
	for _, checker := range h.checkers {
		c := checker
		g.Go(func() error {
			start := time.Now()
			err := c.Check(ctx)
			cc := ComponentCheck{
				Status:  componentHealthy,
				Latency: time.Since(start).Truncate(time.Microsecond).String(),
			}
			if err != nil {
				cc.Status = componentUnhealthy
				cc.Error = err.Error()
			}
			mu.Lock()
			results[c.Name()] = cc
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

//Personal.AI order the ending
