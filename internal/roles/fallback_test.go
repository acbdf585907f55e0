package roles

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestFallbackStore(t *testing.T, clock Clock) (*FallbackStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFallbackStoreWithClock(client, clock), mr
}

func TestFallbackStoreRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store, mr := newTestFallbackStore(t, func() time.Time { return now })
	ctx := context.Background()

	if err := store.Save(ctx, 42, RoleStaff); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := mr.Get("user_role_42")
	if err != nil {
		t.Fatalf("expected record under user_role_42: %v", err)
	}
	var record LocalRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if record.UserID != 42 || record.Role == nil || *record.Role != "staff" {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.Timestamp != now.UnixMilli() {
		t.Fatalf("expected epoch-millis timestamp %d, got %d", now.UnixMilli(), record.Timestamp)
	}

	role, ok, err := store.Load(ctx, 42)
	if err != nil || !ok || role != RoleStaff {
		t.Fatalf("load: role=%q ok=%v err=%v", role, ok, err)
	}
}

func TestFallbackStoreExpiresRecords(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store, mr := newTestFallbackStore(t, func() time.Time { return now })
	ctx := context.Background()

	if err := store.Save(ctx, 7, RoleAdmin); err != nil {
		t.Fatalf("save: %v", err)
	}

	now = now.Add(FallbackTTL + time.Minute)
	_, ok, err := store.Load(ctx, 7)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatalf("expected expired record to be treated as absent")
	}
	if mr.Exists("user_role_7") {
		t.Fatalf("expired record should be deleted")
	}
}

func TestFallbackStoreDropsCorruptRecords(t *testing.T) {
	store, mr := newTestFallbackStore(t, time.Now)
	ctx := context.Background()

	mr.Set("user_role_9", "{not json")
	_, ok, err := store.Load(ctx, 9)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatalf("corrupt record must be treated as absent")
	}
	if mr.Exists("user_role_9") {
		t.Fatalf("corrupt record should be deleted")
	}
}

func TestFallbackStoreClearAll(t *testing.T) {
	store, mr := newTestFallbackStore(t, time.Now)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		if err := store.Save(ctx, id, RoleStudent); err != nil {
			t.Fatalf("save %d: %v", id, err)
		}
	}
	mr.Set("unrelated", "keep")

	if err := store.ClearAll(ctx); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	for _, id := range []int64{1, 2, 3} {
		if _, ok, _ := store.Load(ctx, id); ok {
			t.Fatalf("record for %d should be gone", id)
		}
	}
	if !mr.Exists("unrelated") {
		t.Fatalf("keys outside the role namespace must survive")
	}
}
