package realtime

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewMessageID returns a ULID message id. ULIDs are globally unique and
// lexicographically sortable, which keeps ids useful for tracing in logs.
func NewMessageID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewConnectionID returns a server-assigned connection id for callers that did
// not supply one in the connection path.
func NewConnectionID() string {
	return uuid.NewString()
}
