package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/nktrudik/finly-backend/internal/cache"
)

// Cached wraps a Provider with a whole-batch cache: one entry per exact
// ordered list of input texts. Any change, addition, removal or reorder
// produces a different key. Single-text calls go straight through.
type Cached struct {
	provider Provider
	cache    cache.Cache
	ttl      time.Duration
}

func NewCached(provider Provider, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{provider: provider, cache: c, ttl: ttl}
}

type batchEntry struct {
	Dense  [][]float32    `json:"dense"`
	Sparse []SparseVector `json:"sparse"`
}

func (c *Cached) EmbedDense(ctx context.Context, text string) ([]float32, error) {
	return c.provider.EmbedDense(ctx, text)
}

func (c *Cached) EmbedSparse(ctx context.Context, text string) (SparseVector, error) {
	return c.provider.EmbedSparse(ctx, text)
}

func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, []SparseVector, error) {
	if len(texts) == 0 {
		return nil, nil, nil
	}

	key := batchKey(texts)

	var entry batchEntry
	err := c.cache.Get(ctx, key, &entry)
	if err == nil && len(entry.Dense) == len(texts) && len(entry.Sparse) == len(texts) {
		slog.Info("embedding batch served from cache", "key", key, "texts", len(texts))
		return entry.Dense, entry.Sparse, nil
	}
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		// Unreadable entry must not fail indexing: drop it and regenerate.
		slog.Warn("embedding cache unreadable, invalidating", "key", key, "error", err)
		if delErr := c.cache.Delete(ctx, key); delErr != nil {
			slog.Warn("embedding cache invalidation failed", "key", key, "error", delErr)
		}
	}

	dense, sparse, err := c.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, nil, err
	}

	if err := c.cache.Set(ctx, key, batchEntry{Dense: dense, Sparse: sparse}, c.ttl); err != nil {
		slog.Warn("embedding cache write failed", "key", key, "error", err)
	}
	return dense, sparse, nil
}

// batchKey hashes the concatenated ordered texts.
func batchKey(texts []string) string {
	h := sha256.New()
	for _, t := range texts {
		h.Write([]byte(t))
	}
	return "embeddings:" + hex.EncodeToString(h.Sum(nil))[:16]
}
