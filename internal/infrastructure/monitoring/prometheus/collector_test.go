package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_EmptyNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, nil)
	assert.Error(t, err)
}

func TestNewMetricsCollector_WithGoMetrics(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", EnableGoMetrics: true}, nil)
	require.NoError(t, err)
	assert.Contains(t, scrapeMetrics(t, c), "go_goroutines")
}

func TestRegisterCounter(t *testing.T) {
	c := newTestCollector(t)
	vec := c.RegisterCounter("requests_total", "help", "code")
	vec.WithLabelValues("200").Inc()
	vec.WithLabelValues("200").Add(2)

	assert.Contains(t, scrapeMetrics(t, c), `test_requests_total{code="200"} 3`)
}

func TestRegister_ReturnsExisting(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("dup_total", "help").WithLabelValues().Inc()
	c.RegisterCounter("dup_total", "help").WithLabelValues().Inc()

	assert.Contains(t, scrapeMetrics(t, c), "test_dup_total 2")
}

func TestRegister_TypeMismatchIsNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("shared", "help")

	g := c.RegisterGauge("shared", "help")
	assert.IsType(t, noopGaugeVec{}, g)
	g.WithLabelValues().Set(5)

	h := c.RegisterHistogram("shared", "help", nil)
	assert.IsType(t, noopHistogramVec{}, h)
}

func TestRegisterGaugeAndHistogram(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterGauge("depth", "help").WithLabelValues().Set(7)
	c.RegisterHistogram("latency_seconds", "help", []float64{1, 2}).WithLabelValues().Observe(1.5)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "test_depth 7")
	assert.Contains(t, out, `test_latency_seconds_bucket{le="2"} 1`)
	assert.Contains(t, out, "test_latency_seconds_count 1")
}

//Personal.AI order the ending
