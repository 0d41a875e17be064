package rag

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nktrudik/finly-backend/internal/embedding"
	"github.com/nktrudik/finly-backend/internal/llm"
	"github.com/nktrudik/finly-backend/internal/vectorstore"
)

const (
	denseScoreThreshold  = 0.6
	sparseScoreThreshold = 0.4
)

const systemPrompt = `You are a personal finance assistant. Answer the user's question using only
the transactions listed in the context. Mention concrete dates, categories and amounts. If the
context does not contain the needed transactions, say so instead of guessing.`

// noMatchesSentence doubles as the context block and the final answer when
// retrieval finds nothing, so an empty result never reaches the LLM.
const noMatchesSentence = "The user has no matching transactions."

// Engine answers natural-language questions over a user's indexed
// transactions: hybrid dense+sparse retrieval, RRF fusion, then answer
// generation through the LLM gateway.
type Engine struct {
	store    vectorstore.Store
	embedder embedding.Provider
	gateway  llm.Gateway
	model    string
}

func NewEngine(store vectorstore.Store, embedder embedding.Provider, gateway llm.Gateway, model string) *Engine {
	return &Engine{store: store, embedder: embedder, gateway: gateway, model: model}
}

// RetrievedTransaction is one fused search hit resolved back to its
// payload.
type RetrievedTransaction struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type Response struct {
	Query        string                 `json:"query"`
	Answer       string                 `json:"answer"`
	Transactions []RetrievedTransaction `json:"transactions"`
	FoundCount   int                    `json:"found_count"`
}

// Ask runs the full query path for one user. limit <= 0 derives the result
// size from the query wording. On generation failure the retrieved
// transactions come back together with the error so callers can still show
// them.
func (e *Engine) Ask(ctx context.Context, query string, userID int64, limit int) (*Response, error) {
	if limit <= 0 {
		limit = EstimateLimit(query)
	}
	slog.Info("hybrid search", "user_id", userID, "limit", limit)

	transactions, err := e.searchTransactions(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Query:        query,
		Transactions: transactions,
		FoundCount:   len(transactions),
	}

	if len(transactions) == 0 {
		resp.Answer = noMatchesSentence
		return resp, nil
	}

	answer, err := e.generate(ctx, FormatContext(transactions), query)
	if err != nil {
		return resp, fmt.Errorf("generate answer: %w", err)
	}
	resp.Answer = answer
	return resp, nil
}

func (e *Engine) searchTransactions(ctx context.Context, query string, userID int64, limit int) ([]RetrievedTransaction, error) {
	denseVec, err := e.embedder.EmbedDense(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query dense: %w", err)
	}
	sparseVec, err := e.embedder.EmbedSparse(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query sparse: %w", err)
	}

	var denseHits, sparseHits []vectorstore.Hit

	// The two searches are independent: run them concurrently, and let
	// each degrade to an empty list if its backend call fails.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.store.SearchDense(gctx, denseVec, vectorstore.SearchOptions{
			UserID:         userID,
			Limit:          limit * 2,
			ScoreThreshold: denseScoreThreshold,
		})
		if err != nil {
			slog.Error("dense search failed", "user_id", userID, "error", err)
			return nil
		}
		denseHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := e.store.SearchSparse(gctx, vectorstore.SparseVector{
			Indices: sparseVec.Indices,
			Values:  sparseVec.Values,
		}, vectorstore.SearchOptions{
			UserID:         userID,
			Limit:          limit * 2,
			ScoreThreshold: sparseScoreThreshold,
		})
		if err != nil {
			slog.Error("sparse search failed", "user_id", userID, "error", err)
			return nil
		}
		sparseHits = hits
		return nil
	})
	_ = g.Wait()

	if len(denseHits) == 0 && len(sparseHits) == 0 {
		slog.Warn("neither dense nor sparse search matched", "user_id", userID)
		return nil, nil
	}

	fused := Fuse(denseHits, sparseHits, limit)
	slog.Info("hybrid search done", "dense", len(denseHits), "sparse", len(sparseHits), "fused", len(fused))
	return fused, nil
}

func (e *Engine) generate(ctx context.Context, contextBlock, query string) (string, error) {
	resp, err := e.gateway.Chat(ctx, llm.ChatRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("%s\n\nQuestion: %s", contextBlock, query)},
		},
		Temperature: 0.5,
		MaxTokens:   500,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
