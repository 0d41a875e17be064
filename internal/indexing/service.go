package indexing

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nktrudik/finly-backend/internal/embedding"
	"github.com/nktrudik/finly-backend/internal/transaction"
	"github.com/nktrudik/finly-backend/internal/vectorstore"
)

const DefaultUpsertBatchSize = 50

// Service turns transaction sources into indexed points. Every mutation
// is scoped to a single user; the store never sees an unfiltered write.
type Service struct {
	store       vectorstore.Store
	embedder    embedding.Provider
	upsertBatch int
}

func NewService(store vectorstore.Store, embedder embedding.Provider, upsertBatch int) *Service {
	if upsertBatch <= 0 {
		upsertBatch = DefaultUpsertBatchSize
	}
	return &Service{store: store, embedder: embedder, upsertBatch: upsertBatch}
}

// Load parses the CSV source and indexes every transaction for the user.
// With replace set, the user's existing points are deleted first. Returns
// the number of points processed; duplicates overwrite in place via their
// deterministic ids, so the processed count can exceed the net growth of
// the collection.
func (s *Service) Load(ctx context.Context, source io.Reader, userID int64, replace bool) (int, error) {
	transactions, err := transaction.ParseCSV(source)
	if err != nil {
		return 0, err
	}
	if len(transactions) == 0 {
		slog.Warn("no transactions to index", "user_id", userID)
		return 0, nil
	}

	if replace {
		slog.Info("replace mode: deleting existing points", "user_id", userID)
		if err := s.store.DeleteUser(ctx, userID); err != nil {
			return 0, fmt.Errorf("delete existing points: %w", err)
		}
	}

	texts := make([]string, len(transactions))
	for i, t := range transactions {
		texts[i] = t.EmbeddingText()
	}

	dense, sparse, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed transactions: %w", err)
	}
	if len(dense) != len(transactions) || len(sparse) != len(transactions) {
		return 0, fmt.Errorf("embedder returned %d dense / %d sparse vectors for %d transactions",
			len(dense), len(sparse), len(transactions))
	}

	points := make([]vectorstore.Point, len(transactions))
	for i, t := range transactions {
		points[i] = vectorstore.Point{
			ID:    transaction.PointID(userID, t),
			Dense: dense[i],
			Sparse: vectorstore.SparseVector{
				Indices: sparse[i].Indices,
				Values:  sparse[i].Values,
			},
			Payload: t.Payload(userID),
		}
	}

	// Bounded-size upsert batches keep each request small. A failed batch
	// aborts the load; already-committed batches stay valid because the
	// ids are deterministic and a retried load overwrites them in place.
	processed := 0
	for start := 0; start < len(points); start += s.upsertBatch {
		end := start + s.upsertBatch
		if end > len(points) {
			end = len(points)
		}
		if err := s.store.Upsert(ctx, points[start:end]); err != nil {
			return processed, fmt.Errorf("upsert batch at %d: %w", start, err)
		}
		processed = end
		slog.Info("upserted points", "user_id", userID, "done", processed, "total", len(points))
	}

	return processed, nil
}

// DeleteUser removes every point owned by the user. Deleting a user with
// no points is a no-op, not an error.
func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user %d: %w", userID, err)
	}
	return nil
}

// CountUser reports how many points the user has. The count only feeds
// upload statistics, so a backend error degrades to 0 instead of failing
// the caller.
func (s *Service) CountUser(ctx context.Context, userID int64) uint64 {
	count, err := s.store.CountUser(ctx, userID)
	if err != nil {
		slog.Error("count user points", "user_id", userID, "error", err)
		return 0
	}
	return count
}
