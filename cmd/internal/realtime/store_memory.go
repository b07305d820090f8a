package realtime

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-memory MessageStore used in dev and tests.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string][]Message
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string][]Message)}
}

// Append appends msg to its room's log.
func (s *MemoryStore) Append(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms[msg.RoomID] = append(s.rooms[msg.RoomID], msg)
	return nil
}

// Recent returns the most recent `limit` messages in chronological order.
func (s *MemoryStore) Recent(_ context.Context, roomID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultCacheCapacity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.rooms[roomID]
	if len(log) > limit {
		log = log[len(log)-limit:]
	}
	out := make([]Message, len(log))
	copy(out, log)
	return out, nil
}

// Stats computes the room's aggregates over the full log.
func (s *MemoryStore) Stats(_ context.Context, roomID string) (RoomStats, error) {
	cutoff := time.Now().UTC().UnixMilli() - statsWindowMillis

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.rooms[roomID]
	senders := make(map[string]struct{})
	for _, m := range log {
		if m.TimestampMillis >= cutoff {
			senders[m.Username] = struct{}{}
		}
	}

	return RoomStats{
		MessageCount:        int64(len(log)),
		ActiveUsersInWindow: int64(len(senders)),
	}, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
