package counter

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const webhookOutcomesKey = "billing:webhook:outcomes"

// WebhookCounter keeps per outcome delivery counts in a Redis hash so every
// replica contributes to the same totals.
type WebhookCounter struct {
	client *redis.Client
}

func NewWebhookCounter(client *redis.Client) *WebhookCounter {
	return &WebhookCounter{client: client}
}

// AddOutcome increments the counter of one delivery outcome.
func (c *WebhookCounter) AddOutcome(ctx context.Context, outcome string) error {
	return c.client.HIncrBy(ctx, webhookOutcomesKey, outcome, 1).Err()
}

// Snapshot returns the current totals. Fields that are not integers are skipped.
func (c *WebhookCounter) Snapshot(ctx context.Context) (map[string]int64, error) {
	data, err := c.client.HGetAll(ctx, webhookOutcomesKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(data))
	for k, v := range data {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}

// Reset drops all totals.
func (c *WebhookCounter) Reset(ctx context.Context) error {
	return c.client.Del(ctx, webhookOutcomesKey).Err()
}
