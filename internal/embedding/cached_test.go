package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nktrudik/finly-backend/internal/cache"
)

type countingProvider struct {
	batchCalls int
}

func (p *countingProvider) EmbedDense(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

func (p *countingProvider) EmbedSparse(ctx context.Context, text string) (SparseVector, error) {
	return SparseVector{Indices: []uint32{1}, Values: []float32{1}}, nil
}

func (p *countingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, []SparseVector, error) {
	p.batchCalls++
	dense := make([][]float32, len(texts))
	sparse := make([]SparseVector, len(texts))
	for i := range texts {
		dense[i] = []float32{float32(i)}
		sparse[i] = SparseVector{Indices: []uint32{uint32(i)}, Values: []float32{1}}
	}
	return dense, sparse, nil
}

func TestEmbedBatchCachesWholeBatch(t *testing.T) {
	provider := &countingProvider{}
	cached := NewCached(provider, cache.NewMemory(), time.Hour)
	ctx := context.Background()
	texts := []string{"coffee", "taxi"}

	dense, sparse, err := cached.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, dense, 2)
	require.Len(t, sparse, 2)
	assert.Equal(t, 1, provider.batchCalls)

	again, _, err := cached.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	assert.Equal(t, dense, again)
	assert.Equal(t, 1, provider.batchCalls)
}

func TestEmbedBatchReorderMissesCache(t *testing.T) {
	provider := &countingProvider{}
	cached := NewCached(provider, cache.NewMemory(), time.Hour)
	ctx := context.Background()

	_, _, err := cached.EmbedBatch(ctx, []string{"coffee", "taxi"})
	require.NoError(t, err)
	_, _, err = cached.EmbedBatch(ctx, []string{"taxi", "coffee"})
	require.NoError(t, err)
	assert.Equal(t, 2, provider.batchCalls)
}

func TestEmbedBatchInvalidatesCorruptEntry(t *testing.T) {
	provider := &countingProvider{}
	mem := cache.NewMemory()
	cached := NewCached(provider, mem, time.Hour)
	ctx := context.Background()
	texts := []string{"coffee"}

	// Plant an entry that cannot decode into a batch.
	require.NoError(t, mem.Set(ctx, batchKey(texts), "garbage", time.Hour))

	dense, _, err := cached.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, dense, 1)
	assert.Equal(t, 1, provider.batchCalls)

	// The corrupt entry was replaced with a good one.
	_, _, err = cached.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.batchCalls)
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	provider := &countingProvider{}
	cached := NewCached(provider, cache.NewMemory(), time.Hour)

	dense, sparse, err := cached.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, dense)
	assert.Nil(t, sparse)
	assert.Zero(t, provider.batchCalls)
}

func TestBatchKeyStable(t *testing.T) {
	a := batchKey([]string{"coffee", "taxi"})
	b := batchKey([]string{"coffee", "taxi"})
	c := batchKey([]string{"coffee"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "embeddings:")
}
