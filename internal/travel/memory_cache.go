package travel

import (
	"context"
	"sync"
	"time"

	"github.com/pageza/fleet-replanner/internal/domain"
)

type memoryEntry struct {
	seconds   int
	ok        bool
	expiresAt time.Time
}

// MemoryCache is a process-local TTL cache in front of an Oracle, the
// default travel-time cache backend (spec.md §9: "process-local store with
// a defined init and TTL-based eviction; injectable so tests can
// substitute a deterministic oracle").
type MemoryCache struct {
	oracle Oracle
	ttl    time.Duration

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryCache wraps oracle with a TTL cache. ttl <= 0 disables caching.
func NewMemoryCache(oracle Oracle, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		oracle:  oracle,
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

// DurationSeconds returns the cached duration if fresh, otherwise calls the
// oracle and caches the result (including ok=false results, so an
// unroutable origin pair doesn't hammer the oracle within the TTL window).
// An oracle error is returned to the caller and is not cached.
func (c *MemoryCache) DurationSeconds(ctx context.Context, origin, destination domain.Coordinate) (int, bool, error) {
	key := roundedKey(origin, destination)

	if c.ttl > 0 {
		c.mu.Lock()
		entry, found := c.entries[key]
		c.mu.Unlock()
		if found && time.Now().Before(entry.expiresAt) {
			return entry.seconds, entry.ok, nil
		}
	}

	seconds, ok, err := c.oracle.DurationSeconds(ctx, origin, destination)
	if err != nil {
		return 0, false, err
	}

	if c.ttl > 0 {
		c.mu.Lock()
		c.entries[key] = memoryEntry{seconds: seconds, ok: ok, expiresAt: time.Now().Add(c.ttl)}
		c.mu.Unlock()
	}

	return seconds, ok, nil
}

// Purge drops every expired entry; callers may run this periodically
// instead of relying solely on lazy expiry-on-read.
func (c *MemoryCache) Purge() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range c.entries {
		if now.After(v.expiresAt) {
			delete(c.entries, k)
		}
	}
}
