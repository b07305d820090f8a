package realtime

import (
	"context"
	"sync"
	"time"
)

// Room is the directory's room metadata.
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RoomDirectory tracks room metadata with create-if-absent semantics.
//
// EnsureRoom must be safe under concurrent first-access from many connections:
// exactly one creation wins, the rest observe the created room. The Postgres
// implementation enforces this with ON CONFLICT DO NOTHING; the in-memory one
// with a lock.
type RoomDirectory interface {
	EnsureRoom(ctx context.Context, roomID, name string) (Room, error)
	GetRoom(ctx context.Context, roomID string) (Room, bool, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// MemoryRoomDirectory is the in-memory RoomDirectory used in dev and tests.
type MemoryRoomDirectory struct {
	mu    sync.Mutex
	rooms map[string]Room
}

// NewMemoryRoomDirectory constructs an empty in-memory directory.
func NewMemoryRoomDirectory() *MemoryRoomDirectory {
	return &MemoryRoomDirectory{rooms: make(map[string]Room)}
}

// EnsureRoom returns the existing room or creates it.
func (d *MemoryRoomDirectory) EnsureRoom(_ context.Context, roomID, name string) (Room, error) {
	if name == "" {
		name = roomID
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if r, ok := d.rooms[roomID]; ok {
		return r, nil
	}
	r := Room{ID: roomID, Name: name, CreatedAt: time.Now().UTC()}
	d.rooms[roomID] = r
	return r, nil
}

// GetRoom returns the room if present.
func (d *MemoryRoomDirectory) GetRoom(_ context.Context, roomID string) (Room, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[roomID]
	return r, ok, nil
}

// ListRooms returns all known rooms.
func (d *MemoryRoomDirectory) ListRooms(_ context.Context) ([]Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		out = append(out, r)
	}
	return out, nil
}
