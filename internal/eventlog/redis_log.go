package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	"wa-relay-server/internal/models"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list holding serialized events.
const DefaultRedisKey = "relay:webhook-events"

// RedisLog is a Log backed by a capped Redis list, shared across instances.
type RedisLog struct {
	rdb      *redis.Client
	key      string
	capacity int
}

func NewRedisLog(rdb *redis.Client, key string, capacity int) *RedisLog {
	if key == "" {
		key = DefaultRedisKey
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RedisLog{rdb: rdb, key: key, capacity: capacity}
}

func (l *RedisLog) Record(ctx context.Context, ev models.WebhookEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pipe := l.rdb.TxPipeline()
	pipe.LPush(ctx, l.key, b)
	pipe.LTrim(ctx, l.key, 0, int64(l.capacity-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	return nil
}

func (l *RedisLog) Recent(ctx context.Context, n int) ([]models.WebhookEvent, error) {
	if n <= 0 || n > l.capacity {
		n = l.capacity
	}

	raw, err := l.rdb.LRange(ctx, l.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook events: %w", err)
	}

	events := make([]models.WebhookEvent, 0, len(raw))
	for _, item := range raw {
		var ev models.WebhookEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// Ping checks the Redis connection.
func (l *RedisLog) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}
