package realtime

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

func presenceKey(roomID string) string {
	return fmt.Sprintf("room:%s:online", roomID)
}

// RedisPresenceSet is a PresenceSet shared across gateway instances through a
// Redis set per room.
type RedisPresenceSet struct {
	client *redis.Client
}

// NewRedisPresenceSet constructs a Redis-backed presence set.
func NewRedisPresenceSet(client *redis.Client) (*RedisPresenceSet, error) {
	if client == nil {
		return nil, errors.New("realtime: nil redis client")
	}
	return &RedisPresenceSet{client: client}, nil
}

// Add records displayName as online in roomID (SADD, idempotent).
func (p *RedisPresenceSet) Add(ctx context.Context, roomID, displayName string) error {
	if roomID == "" || displayName == "" {
		return nil
	}
	if err := p.client.SAdd(ctx, presenceKey(roomID), displayName).Err(); err != nil {
		return fmt.Errorf("presence add: %w", err)
	}
	return nil
}

// Remove clears displayName from roomID (SREM, no-op when absent).
func (p *RedisPresenceSet) Remove(ctx context.Context, roomID, displayName string) error {
	if roomID == "" || displayName == "" {
		return nil
	}
	if err := p.client.SRem(ctx, presenceKey(roomID), displayName).Err(); err != nil {
		return fmt.Errorf("presence remove: %w", err)
	}
	return nil
}

// MembersOf returns the sorted online display names for roomID.
func (p *RedisPresenceSet) MembersOf(ctx context.Context, roomID string) ([]string, error) {
	names, err := p.client.SMembers(ctx, presenceKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("presence members: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
