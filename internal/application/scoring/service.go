package scoring

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	domain "github.com/turtacn/leadscore/internal/domain/scoring"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/pkg/errors"
)

// Deliverer sends an aggregate to its callback.
type Deliverer interface {
	Deliver(ctx context.Context, agg *domain.BatchAggregate, callbackURL, authToken, apiKey string) error
}

// Service is the batch submission use case: it reads the batch document,
// scores every lead and delivers the results.
type Service struct {
	blobs       domain.BlobReader
	coordinator *Coordinator
	reporter    Deliverer
	publisher   domain.EventPublisher
	logger      logging.Logger

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
	active  atomic.Int64
}

// ServiceConfig holds the Service collaborators. Publisher is optional.
type ServiceConfig struct {
	Blobs       domain.BlobReader
	Coordinator *Coordinator
	Reporter    Deliverer
	Publisher   domain.EventPublisher
	Logger      logging.Logger
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Blobs == nil {
		return nil, errors.InvalidParam("blob reader is required")
	}
	if cfg.Coordinator == nil {
		return nil, errors.InvalidParam("coordinator is required")
	}
	if cfg.Reporter == nil {
		return nil, errors.InvalidParam("reporter is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	return &Service{
		blobs:       cfg.Blobs,
		coordinator: cfg.Coordinator,
		reporter:    cfg.Reporter,
		publisher:   cfg.Publisher,
		logger:      cfg.Logger,
	}, nil
}

// SubmitAsync validates loc and processes the batch in the background. The
// background work is detached from ctx so it outlives the HTTP request.
func (s *Service) SubmitAsync(ctx context.Context, loc domain.BlobLocation) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeServiceUnavailable, "service is shutting down")
	}
	s.wg.Add(1)
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	s.active.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.active.Add(-1)
		if _, err := s.Process(bg, loc); err != nil {
			s.logger.Error("batch processing failed",
				logging.String("bucket", loc.Bucket),
				logging.String("filename", loc.Filename),
				logging.Err(err),
			)
		}
	}()
	return nil
}

// Process runs one batch synchronously: load, score, deliver, publish. The
// aggregate is returned even when delivery fails. An Incomplete aggregate is
// still delivered, with no items, so the caller's flow is not left waiting.
func (s *Service) Process(ctx context.Context, loc domain.BlobLocation) (*domain.BatchAggregate, error) {
	doc, err := s.Load(ctx, loc)
	if err != nil {
		return nil, err
	}

	agg := s.Score(ctx, doc)
	derr := s.reporter.Deliver(ctx, agg, doc.CallbackURL, doc.Token, doc.APICallbackKey)
	s.publish(ctx, agg, derr == nil, derr)
	if derr != nil {
		return agg, derr
	}
	if agg.Incomplete {
		s.logger.Warn("incomplete batch delivered without items",
			logging.String("batch_id", agg.BatchID),
			logging.String("subscription_id", agg.SubscriptionID),
		)
		return agg, errors.New(errors.ErrCodeDispatcherClosed, "batch aborted before all items were scored").
			WithDetail(agg.BatchID)
	}
	return agg, nil
}

// Load reads and validates the batch document at loc.
func (s *Service) Load(ctx context.Context, loc domain.BlobLocation) (*domain.BatchDocument, error) {
	var raw json.RawMessage
	if err := s.blobs.ReadJSON(ctx, loc.Bucket, loc.Filename, &raw); err != nil {
		return nil, err
	}
	doc, err := domain.ParseBatchDocument(raw)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Score runs every work item of doc through the coordinator.
func (s *Service) Score(ctx context.Context, doc *domain.BatchDocument) *domain.BatchAggregate {
	rc := doc.RequesterContext()
	return s.coordinator.RunBatch(ctx, Batch{
		ID:               uuid.NewString(),
		CorrelationToken: doc.Token,
		SubscriptionID:   rc.SubscriptionID,
		CampaignID:       rc.CampaignID,
		Items:            doc.WorkItems(),
	})
}

func (s *Service) publish(ctx context.Context, agg *domain.BatchAggregate, delivered bool, derr error) {
	if s.publisher == nil {
		return
	}
	ev := domain.BatchCompletedEvent{
		BatchID:        agg.BatchID,
		SubscriptionID: agg.SubscriptionID,
		CampaignID:     agg.CampaignID,
		Total:          len(agg.Items),
		Succeeded:      agg.Succeeded(),
		Failed:         agg.Failed(),
		Incomplete:     agg.Incomplete,
		Delivered:      delivered,
		DurationMS:     agg.Duration().Milliseconds(),
		CompletedAt:    agg.CompletedAt,
	}
	if derr != nil {
		ev.DeliveryError = derr.Error()
	}
	if err := s.publisher.PublishBatchCompleted(ctx, ev); err != nil {
		s.logger.Warn("batch event not published", logging.String("batch_id", agg.BatchID), logging.Err(err))
	}
}

// Accepting reports whether SubmitAsync still takes new batches.
func (s *Service) Accepting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closing
}

// Active returns the number of batches still being processed.
func (s *Service) Active() int { return int(s.active.Load()) }

// Shutdown stops accepting submissions and waits for background batches.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("shutdown with batches in progress", logging.Int("active", s.Active()))
		return ctx.Err()
	}
}

//Personal.AI order the ending
