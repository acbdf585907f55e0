package roles

import (
	"testing"
	"time"
)

func TestCacheExpiresAfterTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCacheWithClock(func() time.Time { return now })

	cache.Put(7, RoleAdmin)
	role, ok := cache.Get(7)
	if !ok || role != RoleAdmin {
		t.Fatalf("expected fresh hit with admin, got %q ok=%v", role, ok)
	}

	now = now.Add(CacheTTL)
	if _, ok := cache.Get(7); !ok {
		t.Fatalf("entry at exactly the TTL boundary should still be served")
	}

	now = now.Add(time.Second)
	if _, ok := cache.Get(7); ok {
		t.Fatalf("expected miss after TTL elapsed")
	}
}

func TestCacheStoresUnassignedRole(t *testing.T) {
	cache := NewCache()
	cache.Put(3, RoleNone)
	role, ok := cache.Get(3)
	if !ok {
		t.Fatalf("a cached empty role is a legitimate hit")
	}
	if role != RoleNone {
		t.Fatalf("expected empty role, got %q", role)
	}
}

func TestPutDefaultStopsRefreshingAfterCap(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCacheWithClock(func() time.Time { return now })

	for i := 0; i < MaxCacheAttempts; i++ {
		if !cache.PutDefault(9, DefaultRole) {
			t.Fatalf("attempt %d should refresh the entry", i+1)
		}
	}
	if cache.PutDefault(9, DefaultRole) {
		t.Fatalf("attempt beyond the cap must not refresh the entry")
	}

	// A database-sourced write resets the counter.
	cache.Put(9, RoleStaff)
	if !cache.PutDefault(9, DefaultRole) {
		t.Fatalf("counter should reset after a database-sourced write")
	}
}

func TestCacheRemoveAndClear(t *testing.T) {
	cache := NewCache()
	cache.Put(1, RoleAdmin)
	cache.Put(2, RoleStaff)

	cache.Remove(1)
	if _, ok := cache.Get(1); ok {
		t.Fatalf("expected entry 1 removed")
	}
	if _, ok := cache.Get(2); !ok {
		t.Fatalf("entry 2 should survive a single removal")
	}

	cache.Clear()
	if _, ok := cache.Get(2); ok {
		t.Fatalf("expected cache empty after clear")
	}
}
