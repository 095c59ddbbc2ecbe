package embed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/convomem/retrieval-engine/internal/pkg/errors"
	"github.com/convomem/retrieval-engine/internal/pkg/hash"
)

// Cache is a Redis-backed result cache for embedding calls, generalizing the
// teacher's in-process LRU (internal/ml/cache.go) into a shared, externally
// durable cache keyed the same way: (variant, role, text). A nil *Cache, or
// one constructed with a nil client, is a no-op cache that always misses,
// matching the teacher's cache-first-else-compute branch in ml/service.go.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache constructs a Cache backed by rdb with entries expiring after ttl
// (0 means no expiry).
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(variant, role, text string) string {
	return hash.EmbedCacheKey(variant, role, text)
}

// cacheGet looks up a cached value of type T. A miss (including a disabled
// cache) returns ok=false with a nil error; only a genuine Redis transport
// failure returns an error.
func cacheGet[T any](ctx context.Context, c *Cache, variant, role, text string) (T, bool, error) {
	var zero T
	if c == nil || c.rdb == nil {
		return zero, false, nil
	}

	raw, err := c.rdb.Get(ctx, cacheKey(variant, role, text)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, appErrors.UnavailableError("embedding cache", err)
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		// Corrupt entry: treat as a miss rather than failing the request.
		return zero, false, nil
	}
	return v, true, nil
}

// cacheSet stores v under (variant, role, text). Failures are swallowed: the
// cache is an optimization, never a dependency of correctness.
func cacheSet[T any](ctx context.Context, c *Cache, variant, role, text string, v T) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, cacheKey(variant, role, text), raw, c.ttl).Err()
}
