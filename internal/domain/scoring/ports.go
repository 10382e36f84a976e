package scoring

import (
	"context"
	"time"
)

// SecretProvider resolves named secrets. A missing secret is reported with
// a not-found AppError.
type SecretProvider interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// AssistantDirectory maps a subscription to its assistant. A missing
// subscription or mapping is reported with a not-found AppError.
type AssistantDirectory interface {
	GetAssistantID(ctx context.Context, subscriptionID string) (string, error)
}

// BlobReader decodes a JSON object from the object store into dest.
type BlobReader interface {
	ReadJSON(ctx context.Context, bucket, path string, dest interface{}) error
}

// RunStatus is the remote status of an assistant run.
type RunStatus string

const (
	RunStatusCreated   RunStatus = "created"
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusExpired   RunStatus = "expired"

	// RunStatusIncomplete is a run the backend ended early, e.g. on a token
	// limit.
	RunStatusIncomplete RunStatus = "incomplete"
)

// IsTerminal reports whether no further transition is expected.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete:
		return true
	}
	return false
}

// Message is one message of a conversation thread.
type Message struct {
	Role string
	Text string
}

// ConversationService is the long-running operation backend.
// GetMessages returns the thread messages newest first.
type ConversationService interface {
	CreateThread(ctx context.Context) (string, error)
	PostMessage(ctx context.Context, threadID, role, content string) error
	StartRun(ctx context.Context, threadID, assistantID string) (string, error)
	GetRunStatus(ctx context.Context, threadID, runID string) (RunStatus, error)
	GetMessages(ctx context.Context, threadID string) ([]Message, error)
}

// BatchCompletedEvent is published once a batch has been delivered, or has
// failed delivery.
type BatchCompletedEvent struct {
	BatchID        string    `json:"batch_id"`
	SubscriptionID string    `json:"subscription_id"`
	CampaignID     string    `json:"campaign_id"`
	Total          int       `json:"total"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	Incomplete     bool      `json:"incomplete"`
	Delivered      bool      `json:"delivered"`
	DeliveryError  string    `json:"delivery_error,omitempty"`
	DurationMS     int64     `json:"duration_ms"`
	CompletedAt    time.Time `json:"completed_at"`
}

// EventPublisher publishes batch lifecycle events.
type EventPublisher interface {
	PublishBatchCompleted(ctx context.Context, event BatchCompletedEvent) error
}

//Personal.AI order the ending
