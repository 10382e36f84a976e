package prometheus

import (
	"strconv"
	"time"
)

// ScoringMetrics is the metric set of the scoring pipeline. It satisfies
// the metrics hooks of the dispatcher, the operation runner, the batch
// coordinator and the reporter.
type ScoringMetrics struct {
	DispatcherQueueDepth GaugeVec
	DispatcherInFlight   GaugeVec
	DispatcherAdmitted   CounterVec
	DispatcherQueueWait  HistogramVec

	OperationsTotal       CounterVec
	OperationPollAttempts HistogramVec

	BatchesTotal       CounterVec
	BatchDuration      HistogramVec
	BatchItemsTotal    CounterVec
	CallbackDeliveries CounterVec

	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
}

// NewScoringMetrics registers the scoring metrics on collector.
func NewScoringMetrics(collector MetricsCollector) *ScoringMetrics {
	return &ScoringMetrics{
		DispatcherQueueDepth: collector.RegisterGauge("dispatcher_queue_depth",
			"Jobs waiting for an admission slot."),
		DispatcherInFlight: collector.RegisterGauge("dispatcher_in_flight",
			"Jobs currently admitted."),
		DispatcherAdmitted: collector.RegisterCounter("dispatcher_admitted_total",
			"Jobs admitted by the dispatcher."),
		DispatcherQueueWait: collector.RegisterHistogram("dispatcher_queue_wait_seconds",
			"Time a job waited in the queue.", []float64{.01, .1, .5, 1, 2.5, 5, 10, 30, 60, 120}),

		OperationsTotal: collector.RegisterCounter("operations_total",
			"Assistant operations by terminal state.", "state"),
		OperationPollAttempts: collector.RegisterHistogram("operation_poll_attempts",
			"Status polls per operation.", []float64{1, 2, 3, 5, 8, 10, 15, 20}),

		BatchesTotal: collector.RegisterCounter("batches_total",
			"Batches scored by outcome.", "outcome"),
		BatchDuration: collector.RegisterHistogram("batch_duration_seconds",
			"Wall time to score a batch.", []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800}),
		BatchItemsTotal: collector.RegisterCounter("batch_items_total",
			"Scored items by result.", "result"),
		CallbackDeliveries: collector.RegisterCounter("callback_deliveries_total",
			"Callback deliveries by result.", "result"),

		HTTPRequestsTotal: collector.RegisterCounter("http_requests_total",
			"HTTP requests by route, method and status.", "route", "method", "status"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds",
			"HTTP request latency.", nil, "route", "method"),
	}
}

func (m *ScoringMetrics) SetQueueDepth(n int) {
	m.DispatcherQueueDepth.WithLabelValues().Set(float64(n))
}

func (m *ScoringMetrics) SetInFlight(n int) {
	m.DispatcherInFlight.WithLabelValues().Set(float64(n))
}

func (m *ScoringMetrics) IncAdmitted() {
	m.DispatcherAdmitted.WithLabelValues().Inc()
}

func (m *ScoringMetrics) ObserveQueueWait(d time.Duration) {
	m.DispatcherQueueWait.WithLabelValues().Observe(d.Seconds())
}

func (m *ScoringMetrics) IncOperation(state string) {
	m.OperationsTotal.WithLabelValues(state).Inc()
}

func (m *ScoringMetrics) ObservePollAttempts(n int) {
	m.OperationPollAttempts.WithLabelValues().Observe(float64(n))
}

// ObserveBatch records one finished batch.
func (m *ScoringMetrics) ObserveBatch(d time.Duration, total, failed int, incomplete bool) {
	outcome := "complete"
	if incomplete {
		outcome = "incomplete"
	}
	m.BatchesTotal.WithLabelValues(outcome).Inc()
	m.BatchDuration.WithLabelValues().Observe(d.Seconds())
	m.BatchItemsTotal.WithLabelValues("succeeded").Add(float64(total - failed))
	m.BatchItemsTotal.WithLabelValues("failed").Add(float64(failed))
}

func (m *ScoringMetrics) IncDelivery(result string) {
	m.CallbackDeliveries.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records one served request.
func (m *ScoringMetrics) RecordHTTPRequest(route, method string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

//Personal.AI order the ending
