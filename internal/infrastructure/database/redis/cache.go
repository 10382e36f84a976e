package redis

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	domain "github.com/turtacn/leadscore/internal/domain/scoring"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/pkg/errors"
)

// nullMarker records a subscription the directory does not know.
const nullMarker = "__null__"

// AssistantCache is a read-through cache in front of an AssistantDirectory.
// Unknown subscriptions are cached for a shorter time. Concurrent lookups
// of one subscription share a single directory call, and cache failures
// fall back to the directory.
type AssistantCache struct {
	client      *Client
	next        domain.AssistantDirectory
	logger      logging.Logger
	prefix      string
	ttl         time.Duration
	negativeTTL time.Duration
	group       singleflight.Group
}

type CacheOption func(*AssistantCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *AssistantCache) { c.prefix = prefix }
}

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *AssistantCache) { c.ttl = ttl }
}

func WithNegativeTTL(ttl time.Duration) CacheOption {
	return func(c *AssistantCache) { c.negativeTTL = ttl }
}

func NewAssistantCache(client *Client, next domain.AssistantDirectory, log logging.Logger, opts ...CacheOption) *AssistantCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &AssistantCache{
		client:      client,
		next:        next,
		logger:      log,
		prefix:      "leadscore:",
		ttl:         10 * time.Minute,
		negativeTTL: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *AssistantCache) key(subscriptionID string) string {
	return c.prefix + "assistant:" + subscriptionID
}

// jitterTTL spreads expiries by +/- 10%.
func jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

// GetAssistantID implements domain.AssistantDirectory.
func (c *AssistantCache) GetAssistantID(ctx context.Context, subscriptionID string) (string, error) {
	key := c.key(subscriptionID)

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil && val == nullMarker:
		return "", errors.New(errors.ErrCodeSubscriptionNotFound, "subscription not found").WithDetail(subscriptionID)
	case err == nil:
		return val, nil
	case err != redis.Nil:
		c.logger.Warn("assistant cache read failed", logging.String("key", key), logging.Err(err))
	}

	v, err, _ := c.group.Do(subscriptionID, func() (interface{}, error) {
		id, err := c.next.GetAssistantID(ctx, subscriptionID)
		if err != nil {
			if errors.IsNotFound(err) {
				c.store(ctx, key, nullMarker, c.negativeTTL)
			}
			return "", err
		}
		c.store(ctx, key, id, jitterTTL(c.ttl))
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached entry of a subscription.
func (c *AssistantCache) Invalidate(ctx context.Context, subscriptionID string) error {
	if err := c.client.Del(ctx, c.key(subscriptionID)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to invalidate assistant cache")
	}
	return nil
}

func (c *AssistantCache) store(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("assistant cache write failed", logging.String("key", key), logging.Err(err))
	}
}

//Personal.AI order the ending
