package realtime

import (
	"context"
	"sync"
)

// RecentCache is the bounded per-room ring of the most recent messages, read
// on join so the hot path avoids the durable store.
//
// Push appends the newest message and evicts the oldest beyond capacity.
// Recent returns the ring oldest-first (chronological). The gateway backfills
// an empty ring from the MessageStore before serving a join.
type RecentCache interface {
	Push(ctx context.Context, roomID string, msg Message) error
	Recent(ctx context.Context, roomID string) ([]Message, error)
	Capacity() int
}

// MemoryRecentCache is the in-memory RecentCache used in dev and tests.
type MemoryRecentCache struct {
	capacity int

	mu    sync.Mutex
	rooms map[string][]Message
}

// NewMemoryRecentCache constructs a cache with the given per-room capacity.
func NewMemoryRecentCache(capacity int) *MemoryRecentCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &MemoryRecentCache{
		capacity: capacity,
		rooms:    make(map[string][]Message),
	}
}

// Push appends msg, trimming to capacity (FIFO, O(1) amortized).
func (c *MemoryRecentCache) Push(_ context.Context, roomID string, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ring := append(c.rooms[roomID], msg)
	if len(ring) > c.capacity {
		ring = ring[len(ring)-c.capacity:]
	}
	c.rooms[roomID] = ring
	return nil
}

// Recent returns the room's ring in chronological order.
func (c *MemoryRecentCache) Recent(_ context.Context, roomID string) ([]Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ring := c.rooms[roomID]
	out := make([]Message, len(ring))
	copy(out, ring)
	return out, nil
}

// Capacity returns the per-room ring size.
func (c *MemoryRecentCache) Capacity() int { return c.capacity }
