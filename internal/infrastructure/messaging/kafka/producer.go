package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/leadscore/internal/config"
	domain "github.com/turtacn/leadscore/internal/domain/scoring"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/pkg/errors"
)

// EventTypeBatchCompleted is carried in the event_type header.
const EventTypeBatchCompleted = "batch.completed"

var ErrProducerClosed = errors.New(errors.ErrCodeMessageQueue, "producer closed")

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProducerMetrics holds producer counters.
type ProducerMetrics struct {
	MessagesSent   atomic.Int64
	MessagesFailed atomic.Int64
	BytesSent      atomic.Int64
}

// Producer publishes batch lifecycle events. It implements the scoring
// EventPublisher port.
type Producer struct {
	writer  WriterInterface
	topic   string
	logger  logging.Logger
	closed  atomic.Bool
	metrics *ProducerMetrics
}

// NewProducer builds a hash-balanced writer for cfg.Topic.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	if cfg.Topic == "" {
		return nil, errors.New(errors.ErrCodeValidation, "kafka topic required")
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            3,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           requiredAcks(cfg.RequiredAcks),
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{DialTimeout: 10 * time.Second},
	}
	return newProducer(writer, cfg.Topic, logger), nil
}

func newProducer(w WriterInterface, topic string, logger logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Producer{writer: w, topic: topic, logger: logger, metrics: &ProducerMetrics{}}
}

// requiredAcks maps -1 to all replicas; anything else waits for the leader.
func requiredAcks(n int) kafka.RequiredAcks {
	if n < 0 {
		return kafka.RequireAll
	}
	return kafka.RequireOne
}

// PublishBatchCompleted writes ev as JSON keyed by subscription, so the
// events of one subscription stay ordered on a partition.
func (p *Producer) PublishBatchCompleted(ctx context.Context, ev domain.BatchCompletedEvent) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode batch event")
	}

	msg := kafka.Message{
		Key:   []byte(ev.SubscriptionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeBatchCompleted)},
			{Key: "batch_id", Value: []byte(ev.BatchID)},
		},
		Time: ev.CompletedAt,
	}
	if msg.Time.IsZero() {
		msg.Time = time.Now()
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.MessagesFailed.Add(1)
		p.logger.Error("batch event publish failed",
			logging.String("topic", p.topic),
			logging.String("batch_id", ev.BatchID),
			logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeMessageQueue, "publish failed")
	}

	p.metrics.MessagesSent.Add(1)
	p.metrics.BytesSent.Add(int64(len(value)))
	p.logger.Debug("batch event published",
		logging.String("topic", p.topic),
		logging.String("batch_id", ev.BatchID),
		logging.Duration("latency", time.Since(start)))
	return nil
}

// Stats returns a snapshot of the counters.
func (p *Producer) Stats() (sent, failed, bytes int64) {
	return p.metrics.MessagesSent.Load(), p.metrics.MessagesFailed.Load(), p.metrics.BytesSent.Load()
}

// Close flushes and closes the writer once.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("Kafka producer closed", logging.Int64("sent", p.metrics.MessagesSent.Load()))
	return err
}

//Personal.AI order the ending
