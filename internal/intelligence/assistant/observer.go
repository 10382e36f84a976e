package assistant

import (
	"github.com/turtacn/leadscore/internal/domain/scoring"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
)

// Observer receives the lifecycle events of every operation. Callbacks run on
// the goroutine executing the operation and must not block.
type Observer interface {
	OnTransition(itemID string, from, to State)
	OnPoll(itemID string, attempt int, status scoring.RunStatus)
	OnTerminal(itemID string, res RunResult)
}

type nopObserver struct{}

func (nopObserver) OnTransition(string, State, State)     {}
func (nopObserver) OnPoll(string, int, scoring.RunStatus) {}
func (nopObserver) OnTerminal(string, RunResult)          {}

// MultiObserver fans events out to every observer in order.
type MultiObserver []Observer

func (m MultiObserver) OnTransition(itemID string, from, to State) {
	for _, o := range m {
		o.OnTransition(itemID, from, to)
	}
}

func (m MultiObserver) OnPoll(itemID string, attempt int, status scoring.RunStatus) {
	for _, o := range m {
		o.OnPoll(itemID, attempt, status)
	}
}

func (m MultiObserver) OnTerminal(itemID string, res RunResult) {
	for _, o := range m {
		o.OnTerminal(itemID, res)
	}
}

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

// LoggingObserver writes transitions at debug level and terminal results at
// info or warn level.
type LoggingObserver struct {
	logger logging.Logger
}

// NewLoggingObserver creates a LoggingObserver.
func NewLoggingObserver(logger logging.Logger) *LoggingObserver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &LoggingObserver{logger: logger}
}

func (o *LoggingObserver) OnTransition(itemID string, from, to State) {
	o.logger.Debug("operation transition",
		logging.String("item_id", itemID),
		logging.String("from", from.String()),
		logging.String("to", to.String()),
	)
}

func (o *LoggingObserver) OnPoll(itemID string, attempt int, status scoring.RunStatus) {
	o.logger.Debug("run status",
		logging.String("item_id", itemID),
		logging.Int("attempt", attempt),
		logging.String("status", string(status)),
	)
}

func (o *LoggingObserver) OnTerminal(itemID string, res RunResult) {
	fields := []logging.Field{
		logging.String("item_id", itemID),
		logging.String("state", res.State.String()),
		logging.Int("attempts", res.Attempts),
	}
	if res.State == StateCompleted {
		o.logger.Info("operation completed", fields...)
		return
	}
	fields = append(fields, logging.String("reason", res.Reason.String()))
	if res.RemoteStatus != "" {
		fields = append(fields, logging.String("remote_status", string(res.RemoteStatus)))
	}
	if res.Err != nil {
		fields = append(fields, logging.Err(res.Err))
	}
	o.logger.Warn("operation did not complete", fields...)
}

// ---------------------------------------------------------------------------
// Metrics
// ---------------------------------------------------------------------------

// OperationMetrics is the sink for per-operation telemetry.
type OperationMetrics interface {
	IncOperation(state string)
	ObservePollAttempts(n int)
}

// MetricsObserver records terminal states and poll counts.
type MetricsObserver struct {
	metrics OperationMetrics
}

// NewMetricsObserver creates a MetricsObserver.
func NewMetricsObserver(m OperationMetrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) OnTransition(string, State, State)     {}
func (o *MetricsObserver) OnPoll(string, int, scoring.RunStatus) {}

func (o *MetricsObserver) OnTerminal(_ string, res RunResult) {
	if o.metrics == nil {
		return
	}
	o.metrics.IncOperation(res.State.String())
	if res.Attempts > 0 {
		o.metrics.ObservePollAttempts(res.Attempts)
	}
}

//Personal.AI order the ending
