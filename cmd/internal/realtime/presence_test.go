package realtime

import (
	"context"
	"reflect"
	"testing"
)

func TestMemoryPresenceSetSemantics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := NewMemoryPresenceSet()

	for _, name := range []string{"bob", "alice", "alice"} {
		if err := p.Add(ctx, "general", name); err != nil {
			t.Fatalf("add %q: %v", name, err)
		}
	}

	got, err := p.MembersOf(ctx, "general")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if want := []string{"alice", "bob"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("members=%v want=%v", got, want)
	}

	if err := p.Remove(ctx, "general", "alice"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// Removing a name that is not there is a no-op.
	if err := p.Remove(ctx, "general", "carol"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	if err := p.Remove(ctx, "nosuchroom", "alice"); err != nil {
		t.Fatalf("remove unknown room: %v", err)
	}

	got, _ = p.MembersOf(ctx, "general")
	if want := []string{"bob"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("members=%v want=%v", got, want)
	}
}

func TestMemoryPresenceSetEmptyInputs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := NewMemoryPresenceSet()

	_ = p.Add(ctx, "", "alice")
	_ = p.Add(ctx, "general", "")

	if got, _ := p.MembersOf(ctx, "general"); len(got) != 0 {
		t.Fatalf("members=%v want empty", got)
	}
}
