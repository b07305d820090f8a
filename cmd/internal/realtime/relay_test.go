package realtime

import (
	"context"
	"fmt"
	"testing"
)

func TestMemoryRelayOrderingAndFanOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewMemoryRelay()

	var a, b []string
	cancelA, err := r.Subscribe(ctx, "general", func(m Message) { a = append(a, m.ID) })
	if err != nil {
		t.Fatalf("subscribe a: %v", err)
	}
	defer cancelA()
	cancelB, err := r.Subscribe(ctx, "general", func(m Message) { b = append(b, m.ID) })
	if err != nil {
		t.Fatalf("subscribe b: %v", err)
	}
	defer cancelB()

	for i := 0; i < 5; i++ {
		if err := r.Publish(ctx, "general", Message{ID: fmt.Sprintf("m%d", i)}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	for i := 0; i < 5; i++ {
		want := fmt.Sprintf("m%d", i)
		if a[i] != want || b[i] != want {
			t.Fatalf("delivery out of order: a=%v b=%v", a, b)
		}
	}
}

func TestMemoryRelayCancelStopsDelivery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewMemoryRelay()

	var got int
	cancel, err := r.Subscribe(ctx, "general", func(Message) { got++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	_ = r.Publish(ctx, "general", Message{ID: "m0"})
	cancel()
	_ = r.Publish(ctx, "general", Message{ID: "m1"})

	if got != 1 {
		t.Fatalf("deliveries=%d want=1", got)
	}

	// Cancel is safe to call twice.
	cancel()
}

func TestMemoryRelayChannelsIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewMemoryRelay()

	var got int
	cancel, _ := r.Subscribe(ctx, "general", func(Message) { got++ })
	defer cancel()

	_ = r.Publish(ctx, "random", Message{ID: "m0"})
	if got != 0 {
		t.Fatalf("cross-room delivery: %d", got)
	}
}
