package roles

import (
	"sync"
	"time"
)

const (
	// CacheTTL bounds how long a cached resolution is trusted.
	CacheTTL = 5 * time.Minute
	// MaxCacheAttempts caps how often a failed lookup may refresh the
	// cache before the entry is left to expire on its own.
	MaxCacheAttempts = 3
)

// Clock abstracts time.Now so tests can control expiry.
type Clock func() time.Time

type cacheEntry struct {
	role     Role
	storedAt time.Time
	attempts int
}

// Cache is an injectable in-memory role cache keyed by user id. It only
// ever stores values that originated from the database or the default
// fallback. Construct one per process and pass the handle to the resolver;
// there is no package-level singleton.
type Cache struct {
	mu      sync.Mutex
	now     Clock
	ttl     time.Duration
	entries map[int64]*cacheEntry
}

// NewCache constructs a Cache with production defaults.
func NewCache() *Cache {
	return NewCacheWithClock(time.Now)
}

// NewCacheWithClock constructs a Cache with an injected clock.
func NewCacheWithClock(clock Clock) *Cache {
	return &Cache{
		now:     clock,
		ttl:     CacheTTL,
		entries: make(map[int64]*cacheEntry),
	}
}

// Get returns the cached role for userID. ok is false when no fresh entry
// exists. A cached RoleNone is a legitimate hit: it records that the
// database reported no role assignment.
func (c *Cache) Get(userID int64) (role Role, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, exists := c.entries[userID]
	if !exists {
		return RoleNone, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		return RoleNone, false
	}
	return entry.role, true
}

// Put stores a database-sourced resolution and resets the attempt counter.
func (c *Cache) Put(userID int64, role Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = &cacheEntry{role: role, storedAt: c.now(), attempts: 1}
}

// PutDefault records a default-fallback resolution. The entry is only
// refreshed while the attempt counter is below MaxCacheAttempts; the
// counter is incremented regardless, so a permanently unreachable backend
// stops thrashing the cache after three failures. Returns whether the
// entry was refreshed.
func (c *Cache) PutDefault(userID int64, role Role) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, exists := c.entries[userID]
	if !exists {
		entry = &cacheEntry{}
		c.entries[userID] = entry
	}
	cached := false
	if entry.attempts < MaxCacheAttempts {
		entry.role = role
		entry.storedAt = c.now()
		cached = true
	}
	entry.attempts++
	return cached
}

// Remove drops the entry for one user.
func (c *Cache) Remove(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int64]*cacheEntry)
}
