package counter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const webhookActionsKey = "webhook:counters:actions"

// HashClient is the subset of the redis client the counters need.
type HashClient interface {
	HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// WebhookActions counts live webhook deliveries per reconciliation action in a Redis hash.
// Counts are shared by every process using the same cache server.
type WebhookActions struct {
	client HashClient
}

func NewWebhookActions(client HashClient) *WebhookActions {
	return &WebhookActions{client: client}
}

// Add increments the counter for action.
func (w *WebhookActions) Add(ctx context.Context, action string) error {
	return w.client.HIncrBy(ctx, webhookActionsKey, action, 1).Err()
}

// Snapshot returns the current count per action. A missing hash yields an empty map.
func (w *WebhookActions) Snapshot(ctx context.Context) (map[string]int64, error) {
	data, err := w.client.HGetAll(ctx, webhookActionsKey).Result()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(data))
	for field, raw := range data {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("counter %q holds %q: %w", field, raw, err)
		}
		counts[field] = n
	}
	return counts, nil
}
