package realtime

import (
	"context"
	"log/slog"
	"sync"
)

// subscriptions tracks this instance's relay subscriptions: exactly one per
// room, established when the room first becomes known locally (bootstrap rooms
// at startup, ad-hoc rooms at first join).
type subscriptions struct {
	log   *slog.Logger
	relay Relay

	mu      sync.Mutex
	cancels map[string]func()
}

func newSubscriptions(log *slog.Logger, relay Relay) *subscriptions {
	return &subscriptions{
		log:     log,
		relay:   relay,
		cancels: make(map[string]func()),
	}
}

// ensure subscribes to roomID if this instance has not already.
// It reports whether a new subscription was established.
func (s *subscriptions) ensure(ctx context.Context, roomID string, h RelayHandler) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cancels[roomID]; ok {
		return false, nil
	}

	cancel, err := s.relay.Subscribe(ctx, roomID, h)
	if err != nil {
		return false, err
	}
	s.cancels[roomID] = cancel
	s.log.Debug("subscriptions.add", "room_id", roomID)
	return true, nil
}

// count returns the number of active room subscriptions.
func (s *subscriptions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels)
}

// close cancels every subscription.
func (s *subscriptions) close() {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = make(map[string]func())
	s.mu.Unlock()

	for roomID, cancel := range cancels {
		cancel()
		s.log.Debug("subscriptions.cancel", "room_id", roomID)
	}
}
