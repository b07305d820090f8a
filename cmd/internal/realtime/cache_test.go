package realtime

import (
	"context"
	"fmt"
	"testing"
)

func TestMemoryRecentCacheEviction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemoryRecentCache(3)

	for i := 0; i < 5; i++ {
		msg := Message{ID: fmt.Sprintf("m%d", i), Content: fmt.Sprintf("msg %d", i)}
		if err := c.Push(ctx, "general", msg); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	got, err := c.Recent(ctx, "general")
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len=%d want=3", len(got))
	}
	// Oldest-first, the two oldest evicted.
	for i, want := range []string{"m2", "m3", "m4"} {
		if got[i].ID != want {
			t.Fatalf("got[%d].ID=%q want=%q", i, got[i].ID, want)
		}
	}
}

func TestMemoryRecentCacheRoomsIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemoryRecentCache(10)

	_ = c.Push(ctx, "general", Message{ID: "a"})
	_ = c.Push(ctx, "random", Message{ID: "b"})

	got, _ := c.Recent(ctx, "general")
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("general ring=%+v", got)
	}
	if empty, _ := c.Recent(ctx, "nope"); len(empty) != 0 {
		t.Fatalf("unknown room ring=%+v", empty)
	}
}

func TestMemoryRecentCacheDefaultCapacity(t *testing.T) {
	t.Parallel()

	c := NewMemoryRecentCache(0)
	if c.Capacity() != DefaultCacheCapacity {
		t.Fatalf("capacity=%d want=%d", c.Capacity(), DefaultCacheCapacity)
	}
}
