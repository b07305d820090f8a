package realtime

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(3, time.Second)

	for i := 0; i < 3; i++ {
		if !rl.Allow(base) {
			t.Fatalf("event %d denied under the limit", i)
		}
	}
	if rl.Allow(base) {
		t.Fatal("event over the limit allowed")
	}

	// Old events expire once the window slides past them.
	if !rl.Allow(base.Add(1100 * time.Millisecond)) {
		t.Fatal("event denied after the window expired")
	}
}

func TestRateLimiterPartialExpiry(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Second)

	if !rl.Allow(base) || !rl.Allow(base.Add(900*time.Millisecond)) {
		t.Fatal("setup events denied")
	}

	// First event expired, second still in the window: one slot free.
	at := base.Add(1500 * time.Millisecond)
	if !rl.Allow(at) {
		t.Fatal("freed slot denied")
	}
	if rl.Allow(at) {
		t.Fatal("second event allowed with a full window")
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0, 0)
	now := time.Now()
	for i := 0; i < rateLimitEvents; i++ {
		if !rl.Allow(now) {
			t.Fatalf("event %d denied under the default limit", i)
		}
	}
	if rl.Allow(now) {
		t.Fatal("event over the default limit allowed")
	}
}
