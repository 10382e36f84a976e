package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	domain "github.com/turtacn/leadscore/internal/domain/scoring"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/pkg/errors"
)

// Callback wire format.

// CallbackBody is the payload POSTed to the callback URL.
type CallbackBody struct {
	MunchkinID string          `json:"munchkinId"`
	Token      string          `json:"token"`
	ObjectData []CallbackEntry `json:"objectData"`
}

// CallbackEntry is the per-lead record of a CallbackBody.
type CallbackEntry struct {
	LeadData     LeadData     `json:"leadData"`
	ActivityData ActivityData `json:"activityData"`
}

// LeadData always carries the scoring fields, placeholders included.
type LeadData struct {
	ID            string `json:"id"`
	AIDescription string `json:"AI_Description"`
	AIScore       string `json:"AI_Score"`
	AICategory    string `json:"AI_Category"`
}

// ActivityData repeats the scoring fields only for successful items.
type ActivityData struct {
	Success       bool   `json:"success"`
	AIDescription string `json:"AI_Description,omitempty"`
	AIScore       string `json:"AI_Score,omitempty"`
	AICategory    string `json:"AI_Category,omitempty"`
}

// NewCallbackBody renders agg in the callback wire format.
func NewCallbackBody(agg *domain.BatchAggregate) CallbackBody {
	body := CallbackBody{
		MunchkinID: agg.SubscriptionID,
		Token:      agg.CorrelationToken,
		ObjectData: make([]CallbackEntry, 0, len(agg.Items)),
	}
	for _, it := range agg.Items {
		e := CallbackEntry{
			LeadData: LeadData{
				ID:            it.ItemID,
				AIDescription: it.Description,
				AIScore:       it.Score,
				AICategory:    it.Category,
			},
			ActivityData: ActivityData{Success: it.Success},
		}
		if it.Success {
			e.ActivityData.AIDescription = it.Description
			e.ActivityData.AIScore = it.Score
			e.ActivityData.AICategory = it.Category
		}
		body.ObjectData = append(body.ObjectData, e)
	}
	return body
}

// DeliveryMetrics counts callback attempts by result.
type DeliveryMetrics interface {
	IncDelivery(result string)
}

type noopDeliveryMetrics struct{}

func (noopDeliveryMetrics) IncDelivery(string) {}

// Reporter POSTs batch aggregates to the requester's callback endpoint.
// Each Deliver call makes exactly one attempt.
type Reporter struct {
	client  *http.Client
	logger  logging.Logger
	metrics DeliveryMetrics
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) ReporterOption {
	return func(r *Reporter) {
		if c != nil {
			r.client = c
		}
	}
}

// WithDeliveryMetrics installs a metrics sink.
func WithDeliveryMetrics(m DeliveryMetrics) ReporterOption {
	return func(r *Reporter) {
		if m != nil {
			r.metrics = m
		}
	}
}

// NewReporter creates a Reporter whose requests time out after timeout.
func NewReporter(timeout time.Duration, logger logging.Logger, opts ...ReporterOption) *Reporter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	r := &Reporter{
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: noopDeliveryMetrics{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Deliver posts agg to callbackURL with the bearer token and API key
// headers. Transport failures and non-2xx responses yield a DeliveryError.
func (r *Reporter) Deliver(ctx context.Context, agg *domain.BatchAggregate, callbackURL, authToken, apiKey string) error {
	if agg == nil {
		return errors.InvalidParam("aggregate is nil")
	}
	if callbackURL == "" {
		return errors.DeliveryError("callback url is empty", nil)
	}

	payload, err := json.Marshal(NewCallbackBody(agg))
	if err != nil {
		return errors.DeliveryError("encode callback body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(payload))
	if err != nil {
		r.metrics.IncDelivery("error")
		return errors.DeliveryError("build callback request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("X-Request-ID", uuid.NewString())

	log := r.logger.With(logging.String("batch_id", agg.BatchID))
	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.metrics.IncDelivery("error")
		log.Error("callback unreachable", logging.Err(err))
		return errors.DeliveryError("callback unreachable", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.metrics.IncDelivery("rejected")
		log.Error("callback rejected",
			logging.Int("status", resp.StatusCode),
			logging.String("body", string(body)),
		)
		return errors.DeliveryError("callback rejected", nil).
			WithDetail(fmt.Sprintf("status %d", resp.StatusCode))
	}

	r.metrics.IncDelivery("delivered")
	log.Info("callback delivered",
		logging.Int("status", resp.StatusCode),
		logging.Int("items", len(agg.Items)),
		logging.Duration("latency", time.Since(start)),
	)
	return nil
}

//Personal.AI order the ending
