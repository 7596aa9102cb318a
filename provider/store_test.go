package provider

import (
	"context"
	"testing"
	"time"
)

type cached struct {
	OK    bool
	Count int
}

func TestMemoryStore_SaveLoadDelete(t *testing.T) {
	store := NewMemoryStore[cached]()
	ctx := context.Background()

	if got, err := store.Load(ctx, "missing"); got != nil || err != nil {
		t.Fatalf("Load(missing) = %v, %v", got, err)
	}

	store.Save(ctx, "k", &cached{OK: true, Count: 2}, 0)
	got, _ := store.Load(ctx, "k")
	if got == nil || !got.OK || got.Count != 2 {
		t.Fatalf("Load = %+v", got)
	}

	got.Count = 99
	again, _ := store.Load(ctx, "k")
	if again.Count != 2 {
		t.Error("Load should return a copy")
	}

	store.Delete(ctx, "k")
	if got, _ := store.Load(ctx, "k"); got != nil {
		t.Error("expected nil after delete")
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore[cached]().WithClock(func() time.Time { return now })
	ctx := context.Background()

	store.Save(ctx, "status", &cached{OK: true}, 5*time.Minute)

	now = now.Add(4 * time.Minute)
	if got, _ := store.Load(ctx, "status"); got == nil {
		t.Fatal("entry expired too early")
	}
	now = now.Add(time.Minute)
	if got, _ := store.Load(ctx, "status"); got != nil {
		t.Error("entry should expire after its TTL")
	}
}

func TestMemoryStore_SaveNilDeletes(t *testing.T) {
	store := NewMemoryStore[cached]()
	ctx := context.Background()
	store.Save(ctx, "k", &cached{}, 0)
	store.Save(ctx, "k", nil, 0)
	if got, _ := store.Load(ctx, "k"); got != nil {
		t.Error("saving nil should delete")
	}
}
