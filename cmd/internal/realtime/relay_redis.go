package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

func relayChannel(roomID string) string {
	return fmt.Sprintf("room:%s", roomID)
}

// RedisRelay is a Relay backed by Redis pub/sub, one channel per room.
//
// go-redis resubscribes automatically after a connection loss, but messages
// published during the outage are gone: the documented guarantee stays
// at-least-once per connected session, never exactly-once.
type RedisRelay struct {
	log    *slog.Logger
	client *redis.Client
}

// NewRedisRelay constructs a Redis-backed relay.
func NewRedisRelay(log *slog.Logger, client *redis.Client) (*RedisRelay, error) {
	if client == nil {
		return nil, errors.New("realtime: nil redis client")
	}
	return &RedisRelay{log: log, client: client}, nil
}

// Publish sends msg to every subscriber of the room's channel, across all
// gateway instances.
func (r *RedisRelay) Publish(ctx context.Context, roomID string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("relay marshal: %w", err)
	}
	if err := r.client.Publish(ctx, relayChannel(roomID), data).Err(); err != nil {
		return fmt.Errorf("relay publish: %w", err)
	}
	return nil
}

// Subscribe consumes the room's channel on a dedicated goroutine until cancel
// runs or ctx ends. Handler invocations follow channel receive order.
func (r *RedisRelay) Subscribe(ctx context.Context, roomID string, h RelayHandler) (func(), error) {
	ps := r.client.Subscribe(ctx, relayChannel(roomID))

	// Wait for the subscription to be established so publishes after
	// Subscribe returns are not missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("relay subscribe: %w", err)
	}

	go func() {
		for raw := range ps.Channel() {
			var m Message
			if err := json.Unmarshal([]byte(raw.Payload), &m); err != nil {
				r.log.Warn("relay.decode.fail", "room_id", roomID, "err", err)
				continue
			}
			h(m)
		}
	}()

	r.log.Info("relay.subscribe", "room_id", roomID)

	cancel := func() {
		_ = ps.Close()
	}
	return cancel, nil
}
