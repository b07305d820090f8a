package realtime

import (
	"context"
	"sort"
	"sync"
)

// PresenceSet is the shared per-room set of online display names.
//
// Set semantics, not a counter: duplicate adds and missing removes are no-ops.
// Two simultaneous sessions under one display name therefore collapse into a
// single entry, and the first disconnect clears it for both. Presence is keyed
// by display name because the wire contract's users[] carries display names.
//
// The production implementation is Redis-backed so presence reflects every
// gateway instance, not just the local process.
type PresenceSet interface {
	Add(ctx context.Context, roomID, displayName string) error
	Remove(ctx context.Context, roomID, displayName string) error
	MembersOf(ctx context.Context, roomID string) ([]string, error)
}

// MemoryPresenceSet is the in-memory PresenceSet used in dev and tests.
type MemoryPresenceSet struct {
	mu    sync.Mutex
	rooms map[string]map[string]struct{}
}

// NewMemoryPresenceSet constructs an empty in-memory presence set.
func NewMemoryPresenceSet() *MemoryPresenceSet {
	return &MemoryPresenceSet{rooms: make(map[string]map[string]struct{})}
}

// Add records displayName as online in roomID.
func (p *MemoryPresenceSet) Add(_ context.Context, roomID, displayName string) error {
	if roomID == "" || displayName == "" {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	names, ok := p.rooms[roomID]
	if !ok {
		names = make(map[string]struct{})
		p.rooms[roomID] = names
	}
	names[displayName] = struct{}{}
	return nil
}

// Remove clears displayName from roomID.
func (p *MemoryPresenceSet) Remove(_ context.Context, roomID, displayName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	names, ok := p.rooms[roomID]
	if !ok {
		return nil
	}
	delete(names, displayName)
	if len(names) == 0 {
		delete(p.rooms, roomID)
	}
	return nil
}

// MembersOf returns the sorted online display names for roomID.
func (p *MemoryPresenceSet) MembersOf(_ context.Context, roomID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := p.rooms[roomID]
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}
