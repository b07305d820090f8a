package realtime

import "context"

// RoomStats is the per-room aggregate reported by the stats endpoint.
// ActiveUsersInWindow counts distinct senders within a trailing 24-hour window.
type RoomStats struct {
	MessageCount        int64 `json:"messageCount"`
	ActiveUsersInWindow int64 `json:"activeUsersInWindow"`
}

// MessageStore is the durable append-only message log.
//
// Requirements:
//   - Append preserves the caller-supplied message id.
//   - Recent returns the most recent `limit` messages in chronological order.
//   - Insertion order per room is preserved for non-concurrent appends.
type MessageStore interface {
	Append(ctx context.Context, msg Message) error
	Recent(ctx context.Context, roomID string, limit int) ([]Message, error)
	Stats(ctx context.Context, roomID string) (RoomStats, error)
	Close() error
}

// statsWindowMillis is the trailing window for ActiveUsersInWindow.
const statsWindowMillis = int64(24 * 60 * 60 * 1000)
