package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent. Decode failures are returned
// as distinct errors so callers can invalidate the entry explicitly.
var ErrMiss = errors.New("cache: miss")

// Cache is a small JSON object cache. The embedding service keys whole
// batches by content hash; tests plug in the in-memory implementation.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
