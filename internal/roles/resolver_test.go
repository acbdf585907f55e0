package roles

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	mu    sync.Mutex
	role  Role
	err   error
	calls int
	block chan struct{}
}

func (f *fakeStore) RoleOf(ctx context.Context, userID int64) (Role, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.role, f.err
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestResolver(t *testing.T, store ProfileStore, withLocal bool) (*Resolver, *FallbackStore) {
	t.Helper()
	var local *FallbackStore
	if withLocal {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		local = NewFallbackStore(client)
	}
	resolver := NewResolver(ResolverConfig{
		Cache: NewCache(),
		Store: store,
		Local: local,
	})
	return resolver, local
}

func TestResolveDatabaseSuccessIsCached(t *testing.T) {
	store := &fakeStore{role: RoleAdmin}
	resolver, _ := newTestResolver(t, store, false)
	ctx := context.Background()

	res := resolver.Resolve(ctx, 1)
	if res.Role != RoleAdmin || res.Source != SourceDatabase || res.FromCache {
		t.Fatalf("unexpected resolution %+v", res)
	}

	res = resolver.Resolve(ctx, 1)
	if !res.FromCache {
		t.Fatalf("second resolution should come from cache")
	}
	if store.callCount() != 1 {
		t.Fatalf("expected one database call, got %d", store.callCount())
	}
}

func TestResolveMissingProfileDoesNotFallThrough(t *testing.T) {
	store := &fakeStore{err: &LookupError{Kind: KindNotFound}}
	resolver, local := newTestResolver(t, store, true)
	ctx := context.Background()

	// A stale record must not shadow the authoritative null result.
	if err := local.Save(ctx, 5, RoleAdmin); err != nil {
		t.Fatalf("seed fallback record: %v", err)
	}

	res := resolver.Resolve(ctx, 5)
	if res.Role != RoleNone || res.Source != SourceDatabase {
		t.Fatalf("missing profile should resolve to no role from the database, got %+v", res)
	}
}

func TestResolvePrefersFallbackRecordOverDefault(t *testing.T) {
	store := &fakeStore{err: &LookupError{Kind: KindTimeout}}
	resolver, local := newTestResolver(t, store, true)
	ctx := context.Background()

	if err := local.Save(ctx, 8, RoleStaff); err != nil {
		t.Fatalf("seed fallback record: %v", err)
	}

	res := resolver.Resolve(ctx, 8)
	if res.Role != RoleStaff || res.Source != SourceLocal {
		t.Fatalf("expected fallback record to win, got %+v", res)
	}
}

func TestResolveDegradesToDefault(t *testing.T) {
	store := &fakeStore{err: &LookupError{Kind: KindOther}}
	resolver, _ := newTestResolver(t, store, true)

	res := resolver.Resolve(context.Background(), 11)
	if res.Role != DefaultRole || res.Source != SourceDefault {
		t.Fatalf("expected default role, got %+v", res)
	}
}

func TestResolveRecoversPanics(t *testing.T) {
	resolver := NewResolver(ResolverConfig{
		Cache: NewCache(),
		Store: panicStore{},
	})

	res := resolver.Resolve(context.Background(), 2)
	if res.Role != DefaultRole || res.Source != SourceError {
		t.Fatalf("panic should degrade to default role tagged as error, got %+v", res)
	}
}

type panicStore struct{}

func (panicStore) RoleOf(ctx context.Context, userID int64) (Role, error) {
	panic("boom")
}

func TestResolveStrictSurfacesLookupFailures(t *testing.T) {
	store := &fakeStore{err: &LookupError{Kind: KindTimeout}}
	resolver, _ := newTestResolver(t, store, false)

	if _, err := resolver.ResolveStrict(context.Background(), 4); err == nil {
		t.Fatalf("expected the lookup failure to surface")
	}

	store.err = &LookupError{Kind: KindNotFound}
	res, err := resolver.ResolveStrict(context.Background(), 6)
	if err != nil {
		t.Fatalf("a missing profile is not an error: %v", err)
	}
	if res.Role != RoleNone {
		t.Fatalf("expected no role, got %q", res.Role)
	}
}

func TestClearUserForcesFreshFetch(t *testing.T) {
	store := &fakeStore{role: RoleStaff}
	resolver, _ := newTestResolver(t, store, true)
	ctx := context.Background()

	resolver.Resolve(ctx, 3)
	resolver.ClearUser(ctx, 3)
	resolver.Resolve(ctx, 3)
	if store.callCount() != 2 {
		t.Fatalf("expected a fresh database call after invalidation, got %d", store.callCount())
	}
}

func TestResolveCoalescesConcurrentFetches(t *testing.T) {
	store := &fakeStore{role: RoleAdmin, block: make(chan struct{})}
	resolver, _ := newTestResolver(t, store, false)
	ctx := context.Background()

	const concurrency = 8
	var wg sync.WaitGroup
	results := make([]Resolution, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = resolver.Resolve(ctx, 12)
		}(i)
	}

	// Give the goroutines time to pile onto the single in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(store.block)
	wg.Wait()

	if store.callCount() != 1 {
		t.Fatalf("expected one coalesced database call, got %d", store.callCount())
	}
	for i, res := range results {
		if res.Role != RoleAdmin {
			t.Fatalf("result %d: unexpected role %q", i, res.Role)
		}
	}
}
