package repositories

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/turtacn/leadscore/internal/infrastructure/database/postgres"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/pkg/errors"
)

// queryExecutor is satisfied by *sql.DB and *sql.Tx.
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// Subscription maps a marketing subscription to its scoring assistant.
type Subscription struct {
	SubscriptionID string    `json:"subscriptionId"`
	AssistantID    string    `json:"assistantId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// SubscriptionRepository resolves assistant ids from the subscriptions
// table. It implements the scoring AssistantDirectory port.
type SubscriptionRepository struct {
	log      logging.Logger
	executor queryExecutor
}

func NewSubscriptionRepository(conn *postgres.Connection, log logging.Logger) *SubscriptionRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SubscriptionRepository{log: log, executor: conn.DB()}
}

const selectAssistantID = `SELECT assistant_id FROM subscriptions WHERE subscription_id = $1`

// GetAssistantID returns the assistant configured for subscriptionID.
func (r *SubscriptionRepository) GetAssistantID(ctx context.Context, subscriptionID string) (string, error) {
	if strings.TrimSpace(subscriptionID) == "" {
		return "", errors.InputError("subscription id is required")
	}

	var assistantID string
	err := r.executor.QueryRowContext(ctx, selectAssistantID, subscriptionID).Scan(&assistantID)
	if err == sql.ErrNoRows {
		return "", errors.New(errors.ErrCodeSubscriptionNotFound, "subscription not found").WithDetail(subscriptionID)
	}
	if err != nil {
		r.log.Error("assistant lookup failed", logging.String("subscription", subscriptionID), logging.Err(err))
		return "", errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to look up assistant")
	}
	if assistantID == "" {
		return "", errors.New(errors.ErrCodeSubscriptionNotFound, "subscription has no assistant").WithDetail(subscriptionID)
	}
	return assistantID, nil
}

const upsertSubscription = `
	INSERT INTO subscriptions (subscription_id, assistant_id, created_at, updated_at)
	VALUES ($1, $2, NOW(), NOW())
	ON CONFLICT (subscription_id) DO UPDATE
	SET assistant_id = EXCLUDED.assistant_id, updated_at = NOW()`

// Upsert creates or replaces the assistant mapping of a subscription.
func (r *SubscriptionRepository) Upsert(ctx context.Context, subscriptionID, assistantID string) error {
	if strings.TrimSpace(subscriptionID) == "" || strings.TrimSpace(assistantID) == "" {
		return errors.InputError("subscription id and assistant id are required")
	}
	if _, err := r.executor.ExecContext(ctx, upsertSubscription, subscriptionID, assistantID); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save subscription")
	}
	r.log.Info("subscription saved",
		logging.String("subscription", subscriptionID),
		logging.String("assistant", assistantID))
	return nil
}

const listSubscriptions = `
	SELECT subscription_id, assistant_id, created_at, updated_at
	FROM subscriptions ORDER BY subscription_id`

// List returns every subscription mapping ordered by id.
func (r *SubscriptionRepository) List(ctx context.Context) ([]Subscription, error) {
	rows, err := r.executor.QueryContext(ctx, listSubscriptions)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list subscriptions")
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate subscriptions")
	}
	return out, nil
}

func scanSubscription(row scanner) (Subscription, error) {
	var s Subscription
	if err := row.Scan(&s.SubscriptionID, &s.AssistantID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Subscription{}, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan subscription")
	}
	return s, nil
}

//Personal.AI order the ending
