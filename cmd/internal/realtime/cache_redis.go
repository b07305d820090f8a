package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

func recentKey(roomID string) string {
	return fmt.Sprintf("room:%s:recent", roomID)
}

// RedisRecentCache is a RecentCache shared across gateway instances through a
// capped Redis list per room (newest at the head, LPUSH + LTRIM).
type RedisRecentCache struct {
	client   *redis.Client
	capacity int
}

// NewRedisRecentCache constructs a Redis-backed recent-message cache.
func NewRedisRecentCache(client *redis.Client, capacity int) (*RedisRecentCache, error) {
	if client == nil {
		return nil, errors.New("realtime: nil redis client")
	}
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &RedisRecentCache{client: client, capacity: capacity}, nil
}

// Push prepends msg and trims the list to capacity.
func (c *RedisRecentCache) Push(ctx context.Context, roomID string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}

	key := recentKey(roomID)
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, int64(c.capacity)-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache push: %w", err)
	}
	return nil
}

// Recent returns the room's ring in chronological order.
// The list stores newest-first, so the range is reversed before decoding out.
func (c *RedisRecentCache) Recent(ctx context.Context, roomID string) ([]Message, error) {
	raw, err := c.client.LRange(ctx, recentKey(roomID), 0, int64(c.capacity)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("cache range: %w", err)
	}

	out := make([]Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var m Message
		if err := json.Unmarshal([]byte(raw[i]), &m); err != nil {
			return nil, fmt.Errorf("cache decode: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Capacity returns the per-room ring size.
func (c *RedisRecentCache) Capacity() int { return c.capacity }
