// Package realtime contains Ripple's broadcast core: the WebSocket gateway,
// per-instance connection registry, room directory, presence set, recent-message
// cache, cross-instance relay, and the durable message store.
package realtime

import (
	"encoding/json"
	"time"
)

// SystemUsername is the author of server-generated messages (welcome, join/leave
// notices, error events).
const SystemUsername = "System"

// Message is the canonical chat message. The same shape is persisted, cached,
// relayed between instances, and written to clients.
type Message struct {
	ID              string `json:"id,omitempty"`
	RoomID          string `json:"roomId,omitempty"`
	SenderID        string `json:"senderId,omitempty"`
	Username        string `json:"username"`
	Content         string `json:"content"`
	TimestampMillis int64  `json:"timestampMillis"`

	// Users carries the room's online display names on join/leave notices.
	Users []string `json:"users,omitempty"`
}

// systemMessage builds a server-authored message for a room.
func systemMessage(roomID, content string, users []string, now time.Time) Message {
	return Message{
		RoomID:          roomID,
		Username:        SystemUsername,
		Content:         content,
		TimestampMillis: now.UnixMilli(),
		Users:           users,
	}
}

// errorMessage builds the error event shape: no id, no room.
func errorMessage(content string, now time.Time) Message {
	return Message{
		Username:        SystemUsername,
		Content:         content,
		TimestampMillis: now.UnixMilli(),
	}
}

// pongFrame is the reply to a client ping.
type pongFrame struct {
	Event string `json:"event"`
}

// frameKind is the closed set of inbound event variants.
type frameKind uint8

const (
	frameUnknown frameKind = iota
	frameJoin
	frameSend
	framePing
)

// inboundFrame is the union of all inbound shapes. Pointer fields distinguish
// an absent key from an empty value so classification happens exactly once,
// at the boundary.
type inboundFrame struct {
	RoomID      *string `json:"roomId"`
	DisplayName *string `json:"displayName"`
	Content     *string `json:"content"`
	Event       *string `json:"event"`
}

// decodeFrame parses one inbound frame and classifies it.
// A JSON error yields frameUnknown and the error; any well-formed frame whose
// key set matches no known variant yields frameUnknown with a nil error.
func decodeFrame(data []byte) (inboundFrame, frameKind, error) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return inboundFrame{}, frameUnknown, err
	}
	return f, classifyFrame(f), nil
}

func classifyFrame(f inboundFrame) frameKind {
	switch {
	case f.RoomID != nil:
		return frameJoin
	case f.Content != nil:
		return frameSend
	case f.Event != nil && *f.Event == "ping":
		return framePing
	default:
		return frameUnknown
	}
}
