package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nktrudik/finly-backend/internal/embedding"
	"github.com/nktrudik/finly-backend/internal/llm"
	"github.com/nktrudik/finly-backend/internal/vectorstore"
)

type fakeStore struct {
	denseHits  []vectorstore.Hit
	sparseHits []vectorstore.Hit
	denseErr   error
	sparseErr  error

	denseOpts  vectorstore.SearchOptions
	sparseOpts vectorstore.SearchOptions
}

func (f *fakeStore) Upsert(ctx context.Context, points []vectorstore.Point) error { return nil }

func (f *fakeStore) SearchDense(ctx context.Context, vector []float32, opts vectorstore.SearchOptions) ([]vectorstore.Hit, error) {
	f.denseOpts = opts
	return f.denseHits, f.denseErr
}

func (f *fakeStore) SearchSparse(ctx context.Context, vector vectorstore.SparseVector, opts vectorstore.SearchOptions) ([]vectorstore.Hit, error) {
	f.sparseOpts = opts
	return f.sparseHits, f.sparseErr
}

func (f *fakeStore) DeleteUser(ctx context.Context, userID int64) error { return nil }

func (f *fakeStore) CountUser(ctx context.Context, userID int64) (uint64, error) { return 0, nil }

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedDense(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func (fakeEmbedder) EmbedSparse(ctx context.Context, text string) (embedding.SparseVector, error) {
	return embedding.SparseVector{Indices: []uint32{1}, Values: []float32{0.5}}, nil
}

func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, []embedding.SparseVector, error) {
	return nil, nil, nil
}

type fakeGateway struct {
	calls   int
	lastReq llm.ChatRequest
	content string
	err     error
}

func (f *fakeGateway) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.content}, nil
}

func (f *fakeGateway) Provider(name string) (llm.Provider, error) {
	return nil, errors.New("not configured")
}

func TestAskAnswersFromRetrievedTransactions(t *testing.T) {
	store := &fakeStore{
		denseHits:  []vectorstore.Hit{hit("a", 0.9)},
		sparseHits: []vectorstore.Hit{hit("b", 0.8)},
	}
	gw := &fakeGateway{content: "You spent 100 on coffee."}
	engine := NewEngine(store, fakeEmbedder{}, gw, "gpt-4o-mini")

	resp, err := engine.Ask(context.Background(), "coffee spending", 7, 5)
	require.NoError(t, err)

	assert.Equal(t, "You spent 100 on coffee.", resp.Answer)
	assert.Equal(t, 2, resp.FoundCount)
	assert.Equal(t, 1, gw.calls)

	// Both searches over-fetch at twice the requested limit, scoped to
	// the user, each with its own threshold.
	assert.Equal(t, int64(7), store.denseOpts.UserID)
	assert.Equal(t, 10, store.denseOpts.Limit)
	assert.InDelta(t, 0.6, store.denseOpts.ScoreThreshold, 1e-6)
	assert.InDelta(t, 0.4, store.sparseOpts.ScoreThreshold, 1e-6)
}

func TestAskDegradesWhenOneSearchFails(t *testing.T) {
	store := &fakeStore{
		denseErr:   errors.New("backend down"),
		sparseHits: []vectorstore.Hit{hit("b", 0.8)},
	}
	gw := &fakeGateway{content: "answer"}
	engine := NewEngine(store, fakeEmbedder{}, gw, "gpt-4o-mini")

	resp, err := engine.Ask(context.Background(), "coffee", 7, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.FoundCount)
	assert.Equal(t, "b", resp.Transactions[0].ID)
}

func TestAskSkipsGenerationWhenNothingFound(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{content: "should not be used"}
	engine := NewEngine(store, fakeEmbedder{}, gw, "gpt-4o-mini")

	resp, err := engine.Ask(context.Background(), "unicorn purchases", 7, 5)
	require.NoError(t, err)

	assert.Equal(t, noMatchesSentence, resp.Answer)
	assert.Zero(t, resp.FoundCount)
	assert.Zero(t, gw.calls)
}

func TestAskReturnsTransactionsOnGenerationFailure(t *testing.T) {
	store := &fakeStore{denseHits: []vectorstore.Hit{hit("a", 0.9)}}
	gw := &fakeGateway{err: errors.New("provider down")}
	engine := NewEngine(store, fakeEmbedder{}, gw, "gpt-4o-mini")

	resp, err := engine.Ask(context.Background(), "coffee", 7, 5)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 1, resp.FoundCount)
	assert.Empty(t, resp.Answer)
}

func TestAskDerivesLimitFromQuery(t *testing.T) {
	store := &fakeStore{denseHits: []vectorstore.Hit{hit("a", 0.9)}}
	gw := &fakeGateway{content: "answer"}
	engine := NewEngine(store, fakeEmbedder{}, gw, "gpt-4o-mini")

	_, err := engine.Ask(context.Background(), "total spending this year", 7, 0)
	require.NoError(t, err)
	assert.Equal(t, 600, store.denseOpts.Limit) // 300 * 2
}
