package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pageza/fleet-replanner/internal/domain"
)

// RedisCache is the same TTL-memoized Cache interface as MemoryCache, but
// backed by Redis so several replanner processes can share one oracle-call
// budget (SPEC_FULL.md §4.11). Opt-in via TRAVEL_CACHE_BACKEND=redis;
// the default deployment uses MemoryCache.
type RedisCache struct {
	client    *redis.Client
	oracle    Oracle
	ttl       time.Duration
	keyPrefix string
}

// NewRedisCache wraps oracle with a Redis-backed TTL cache.
func NewRedisCache(client *redis.Client, oracle Oracle, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client:    client,
		oracle:    oracle,
		ttl:       ttl,
		keyPrefix: "travel:",
	}
}

type cachedDuration struct {
	Seconds int  `json:"seconds"`
	OK      bool `json:"ok"`
}

// DurationSeconds returns the cached duration if present, otherwise calls
// the oracle and stores the result with the configured TTL.
func (c *RedisCache) DurationSeconds(ctx context.Context, origin, destination domain.Coordinate) (int, bool, error) {
	redisKey := c.keyPrefix + roundedKey(origin, destination)

	if c.ttl > 0 {
		raw, err := c.client.Get(ctx, redisKey).Bytes()
		if err == nil {
			var cached cachedDuration
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached.Seconds, cached.OK, nil
			}
		} else if err != redis.Nil {
			return 0, false, fmt.Errorf("travel cache read: %w", err)
		}
	}

	seconds, ok, err := c.oracle.DurationSeconds(ctx, origin, destination)
	if err != nil {
		return 0, false, err
	}

	if c.ttl > 0 {
		raw, marshalErr := json.Marshal(cachedDuration{Seconds: seconds, OK: ok})
		if marshalErr == nil {
			if setErr := c.client.Set(ctx, redisKey, raw, c.ttl).Err(); setErr != nil {
				// Cache-write failure must not fail the pass; the value is
				// simply not memoized for next time (spec.md §7: local
				// failures never abort a pass).
				return seconds, ok, nil
			}
		}
	}

	return seconds, ok, nil
}
