// Package scoring is the application layer of the lead scoring pipeline. The
// Coordinator fans a batch out over the throttled dispatcher and joins the
// outcomes in input order; the Reporter delivers them to the callback; the
// Service ties document intake, scoring and delivery together.
package scoring

import (
	"context"
	"time"

	"github.com/google/uuid"

	domain "github.com/turtacn/leadscore/internal/domain/scoring"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/internal/intelligence/common"
	"github.com/turtacn/leadscore/pkg/errors"
)

// ItemScorer runs one WorkItem to its outcome. Implementations never return
// without an outcome.
type ItemScorer interface {
	Score(ctx context.Context, item domain.WorkItem) domain.ItemOutcome
}

// Batch is the coordinator input: ordered items plus the correlation data
// copied onto the aggregate.
type Batch struct {
	ID               string
	CorrelationToken string
	SubscriptionID   string
	CampaignID       string
	Items            []domain.WorkItem
}

// BatchMetrics receives per-batch telemetry.
type BatchMetrics interface {
	ObserveBatch(d time.Duration, total, failed int, incomplete bool)
}

type noopBatchMetrics struct{}

func (noopBatchMetrics) ObserveBatch(time.Duration, int, int, bool) {}

// Coordinator scores batches through a shared Dispatcher.
type Coordinator struct {
	dispatcher *common.Dispatcher[domain.ItemOutcome]
	scorer     ItemScorer
	logger     logging.Logger
	metrics    BatchMetrics
	now        func() time.Time
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithBatchMetrics installs a metrics sink.
func WithBatchMetrics(m BatchMetrics) CoordinatorOption {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewCoordinator creates a Coordinator. The dispatcher is shared by every
// batch so the concurrency cap holds across batches.
func NewCoordinator(d *common.Dispatcher[domain.ItemOutcome], scorer ItemScorer, logger logging.Logger, opts ...CoordinatorOption) (*Coordinator, error) {
	if d == nil || scorer == nil {
		return nil, errors.InvalidParam("dispatcher and scorer are required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Coordinator{
		dispatcher: d,
		scorer:     scorer,
		logger:     logger,
		metrics:    noopBatchMetrics{},
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// RunBatch submits one operation per item and waits for all of them.
// Items[i] of the result is the outcome of batch.Items[i]. A failed item
// never affects its siblings; only a closed dispatcher aborts the batch, in
// which case the aggregate is returned empty and Incomplete.
func (c *Coordinator) RunBatch(ctx context.Context, batch Batch) *domain.BatchAggregate {
	agg := &domain.BatchAggregate{
		BatchID:          batch.ID,
		CorrelationToken: batch.CorrelationToken,
		SubscriptionID:   batch.SubscriptionID,
		CampaignID:       batch.CampaignID,
		StartedAt:        c.now(),
	}
	if agg.BatchID == "" {
		agg.BatchID = uuid.NewString()
	}
	log := c.logger.With(logging.String("batch_id", agg.BatchID))
	log.Info("batch started", logging.Int("items", len(batch.Items)))

	futures := make([]*common.Future[domain.ItemOutcome], len(batch.Items))
	for i, item := range batch.Items {
		item := item
		futures[i] = c.dispatcher.Submit(ctx, func(ctx context.Context) (out domain.ItemOutcome, err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("item scoring panicked", logging.String("item_id", item.ID), logging.Any("panic", r))
					out, err = domain.Failed(item.ID, domain.DescInternal), nil
				}
			}()
			return c.scorer.Score(ctx, item), nil
		})
	}

	items := make([]domain.ItemOutcome, len(futures))
	for i, f := range futures {
		out, err := f.Await(context.Background())
		switch {
		case err == nil:
			items[i] = out
		case errors.IsCode(err, errors.ErrCodeDispatcherClosed):
			log.Error("batch aborted, dispatcher closed", logging.Int("joined", i))
			agg.Incomplete = true
		default:
			log.Warn("item not scored", logging.String("item_id", batch.Items[i].ID), logging.Err(err))
			items[i] = domain.Failed(batch.Items[i].ID, describeJoinError(err))
		}
	}
	agg.Items = items
	if agg.Incomplete {
		agg.Items = []domain.ItemOutcome{}
	}
	agg.CompletedAt = c.now()

	c.metrics.ObserveBatch(agg.Duration(), len(batch.Items), agg.Failed(), agg.Incomplete)
	log.Info("batch finished",
		logging.Int("succeeded", agg.Succeeded()),
		logging.Int("failed", agg.Failed()),
		logging.Bool("incomplete", agg.Incomplete),
		logging.Duration("duration", agg.Duration()),
	)
	return agg
}

func describeJoinError(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.DescAborted
	}
	return domain.DescInternal
}

//Personal.AI order the ending
