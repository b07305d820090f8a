package realtime

import (
	"log/slog"
	"sync"
)

// Conn is the registry's view of one live connection.
type Conn struct {
	ID          string
	Client      *Client
	RoomID      string
	DisplayName string
}

// ConnectionRegistry is the per-instance table of live connections plus a
// room -> members index for local fan-out.
//
// It is instance-local by design; cross-instance state lives in the presence
// set and the relay. Every operation is a no-op against an unknown connection
// id. The registry never sends notifications itself; that is the gateway's
// job, using the data returned here.
type ConnectionRegistry struct {
	log *slog.Logger

	mu    sync.RWMutex
	conns map[string]*Conn
	rooms map[string]map[string]*Client // roomID -> connID -> client
}

// NewConnectionRegistry constructs an empty registry.
func NewConnectionRegistry(log *slog.Logger) *ConnectionRegistry {
	return &ConnectionRegistry{
		log:   log,
		conns: make(map[string]*Conn),
		rooms: make(map[string]map[string]*Client),
	}
}

// Register adds a connection with no room. Re-registering the same id
// replaces the previous entry; the replaced session's later Unregister is a
// no-op because it no longer owns the id.
func (r *ConnectionRegistry) Register(connID string, client *Client) {
	if connID == "" || client == nil {
		return
	}

	r.mu.Lock()
	if prev, ok := r.conns[connID]; ok && prev.RoomID != "" {
		r.removeFromRoomLocked(prev.RoomID, connID)
	}
	r.conns[connID] = &Conn{ID: connID, Client: client}
	r.mu.Unlock()

	r.log.Debug("registry.register", "conn_id", connID)
}

// Unregister removes the connection from its room index and the table.
// It returns the room and display name the connection had, so the caller can
// run presence cleanup and publish a leave notice.
//
// A non-nil owner removes the entry only if it still belongs to that client:
// a session replaced by a reconnect on the same id must not evict its
// replacement. A nil owner removes unconditionally.
func (r *ConnectionRegistry) Unregister(connID string, owner *Client) (roomID, displayName string, ok bool) {
	if connID == "" {
		return "", "", false
	}

	r.mu.Lock()
	c, found := r.conns[connID]
	if found && owner != nil && c.Client != owner {
		found = false
	}
	if found {
		roomID, displayName = c.RoomID, c.DisplayName
		if roomID != "" {
			r.removeFromRoomLocked(roomID, connID)
		}
		delete(r.conns, connID)
	}
	r.mu.Unlock()

	if found {
		r.log.Debug("registry.unregister", "conn_id", connID, "room_id", roomID)
	}
	return roomID, displayName, found
}

// SetRoom moves a connection into roomID, removing it from its previous room
// first (a connection is in at most one room). It returns the previous room
// and display name so the caller can publish a leave notice for it.
func (r *ConnectionRegistry) SetRoom(connID, roomID, displayName string) (prevRoomID, prevName string, ok bool) {
	if connID == "" || roomID == "" {
		return "", "", false
	}

	r.mu.Lock()
	c, found := r.conns[connID]
	if found {
		prevRoomID, prevName = c.RoomID, c.DisplayName
		if prevRoomID != "" && prevRoomID != roomID {
			r.removeFromRoomLocked(prevRoomID, connID)
		}

		c.RoomID = roomID
		c.DisplayName = displayName

		members, exists := r.rooms[roomID]
		if !exists {
			members = make(map[string]*Client)
			r.rooms[roomID] = members
		}
		members[connID] = c.Client
	}
	r.mu.Unlock()

	if found {
		r.log.Debug("registry.set_room", "conn_id", connID, "room_id", roomID, "prev_room_id", prevRoomID)
	}
	return prevRoomID, prevName, found
}

// MembersOf returns a snapshot of the clients currently joined to roomID.
func (r *ConnectionRegistry) MembersOf(roomID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	out := make([]*Client, 0, len(members))
	for _, cl := range members {
		out = append(out, cl)
	}
	return out
}

// Lookup returns a copy of the connection's registry entry.
func (r *ConnectionRegistry) Lookup(connID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok {
		return Conn{}, false
	}
	return *c, true
}

// Counts reports the number of live connections and rooms with local members.
func (r *ConnectionRegistry) Counts() (connections, rooms int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns), len(r.rooms)
}

func (r *ConnectionRegistry) removeFromRoomLocked(roomID, connID string) {
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}
