package realtime

import (
	"context"
	"sync"
)

// RelayHandler is invoked for every message published on a subscribed room
// channel. Handlers must not block: they run on the subscription's receive
// goroutine, and slow local consumers are handled downstream by bounded
// per-connection queues.
type RelayHandler func(msg Message)

// Relay is the cross-instance publish/subscribe bus, one channel per room.
//
// Delivery is at-most-once per subscriber per publish. Handler invocation
// order on a single channel follows publish order. A transport reconnect may
// drop messages published during the outage (at-least-once across a session,
// never exactly-once).
type Relay interface {
	Publish(ctx context.Context, roomID string, msg Message) error
	// Subscribe registers h for roomID until the returned cancel func runs.
	Subscribe(ctx context.Context, roomID string, h RelayHandler) (cancel func(), err error)
}

// MemoryRelay is a process-local Relay used in dev (no Redis configured) and
// in tests. Dispatch is synchronous under a per-room ordering lock, so a
// single room's subscribers observe publishes in order.
type MemoryRelay struct {
	mu    sync.Mutex
	next  int
	rooms map[string]map[int]RelayHandler
}

// NewMemoryRelay constructs an empty local relay.
func NewMemoryRelay() *MemoryRelay {
	return &MemoryRelay{rooms: make(map[string]map[int]RelayHandler)}
}

// Publish delivers msg to every current subscriber of roomID.
func (r *MemoryRelay) Publish(_ context.Context, roomID string, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range r.rooms[roomID] {
		h(msg)
	}
	return nil
}

// Subscribe registers h for roomID.
func (r *MemoryRelay) Subscribe(_ context.Context, roomID string, h RelayHandler) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.rooms[roomID]
	if !ok {
		subs = make(map[int]RelayHandler)
		r.rooms[roomID] = subs
	}
	id := r.next
	r.next++
	subs[id] = h

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.rooms[roomID], id)
	}
	return cancel, nil
}
