package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/leadscore/internal/config"
	domain "github.com/turtacn/leadscore/internal/domain/scoring"
	pkgerrors "github.com/turtacn/leadscore/pkg/errors"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closed    int
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaWriter) Close() error {
	m.closed++
	return nil
}

func testEvent() domain.BatchCompletedEvent {
	return domain.BatchCompletedEvent{
		BatchID:        "batch-1",
		SubscriptionID: "123-ABC-456",
		CampaignID:     "42",
		Total:          3,
		Succeeded:      1,
		Failed:         2,
		Delivered:      true,
		CompletedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer(config.KafkaConfig{Topic: "t"}, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))

	_, err = NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))

	p, err := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}, nil)
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestPublishBatchCompleted(t *testing.T) {
	var captured []kafka.Message
	w := &mockKafkaWriter{writeFunc: func(_ context.Context, msgs ...kafka.Message) error {
		captured = append(captured, msgs...)
		return nil
	}}
	p := newProducer(w, "leadscore.batch.completed", nil)

	require.NoError(t, p.PublishBatchCompleted(context.Background(), testEvent()))
	require.Len(t, captured, 1)

	msg := captured[0]
	assert.Equal(t, "123-ABC-456", string(msg.Key))
	assert.Equal(t, testEvent().CompletedAt, msg.Time)
	assert.Contains(t, msg.Headers, kafka.Header{Key: "event_type", Value: []byte(EventTypeBatchCompleted)})
	assert.Contains(t, msg.Headers, kafka.Header{Key: "batch_id", Value: []byte("batch-1")})

	var decoded domain.BatchCompletedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, testEvent(), decoded)

	sent, failed, bytes := p.Stats()
	assert.EqualValues(t, 1, sent)
	assert.Zero(t, failed)
	assert.EqualValues(t, len(msg.Value), bytes)
}

func TestPublishBatchCompleted_WriteFailure(t *testing.T) {
	w := &mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
		return errors.New("leader not available")
	}}
	p := newProducer(w, "t", nil)

	err := p.PublishBatchCompleted(context.Background(), testEvent())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeMessageQueue))
	_, failed, _ := p.Stats()
	assert.EqualValues(t, 1, failed)
}

func TestProducer_Close(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newProducer(w, "t", nil)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closed)

	err := p.PublishBatchCompleted(context.Background(), testEvent())
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestRequiredAcks(t *testing.T) {
	assert.Equal(t, kafka.RequireAll, requiredAcks(-1))
	assert.Equal(t, kafka.RequireOne, requiredAcks(0))
	assert.Equal(t, kafka.RequireOne, requiredAcks(1))
}

//Personal.AI order the ending
