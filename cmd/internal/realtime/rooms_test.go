package realtime

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryRoomDirectoryEnsureRoom(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := NewMemoryRoomDirectory()

	r1, err := d.EnsureRoom(ctx, "general", "General")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if r1.ID != "general" || r1.Name != "General" {
		t.Fatalf("room=%+v", r1)
	}

	// Second ensure keeps the original metadata.
	r2, err := d.EnsureRoom(ctx, "general", "Other Name")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if r2.Name != "General" || !r2.CreatedAt.Equal(r1.CreatedAt) {
		t.Fatalf("second ensure changed metadata: %+v vs %+v", r2, r1)
	}

	if _, ok, _ := d.GetRoom(ctx, "general"); !ok {
		t.Fatal("GetRoom missed an ensured room")
	}
	if _, ok, _ := d.GetRoom(ctx, "missing"); ok {
		t.Fatal("GetRoom found a room that was never created")
	}
}

func TestMemoryRoomDirectoryEnsureRoomConcurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := NewMemoryRoomDirectory()

	const n = 32
	rooms := make([]Room, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := d.EnsureRoom(ctx, "general", "General")
			if err != nil {
				t.Errorf("ensure: %v", err)
				return
			}
			rooms[i] = r
		}(i)
	}
	wg.Wait()

	// Exactly one creation wins; every caller observes it.
	for i := 1; i < n; i++ {
		if !rooms[i].CreatedAt.Equal(rooms[0].CreatedAt) {
			t.Fatalf("caller %d observed a different room: %+v vs %+v", i, rooms[i], rooms[0])
		}
	}

	all, err := d.ListRooms(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("rooms=%d want=1", len(all))
	}
}

func TestMemoryRoomDirectoryNameDefaultsToID(t *testing.T) {
	t.Parallel()

	r, err := NewMemoryRoomDirectory().EnsureRoom(context.Background(), "tech", "")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if r.Name != "tech" {
		t.Fatalf("name=%q want=%q", r.Name, "tech")
	}
}
