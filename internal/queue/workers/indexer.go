package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/nktrudik/finly-backend/internal/indexing"
	"github.com/nktrudik/finly-backend/internal/queue"
)

// IndexWorker reindexes a user's transactions from their stored upload
// file. Runs in replace mode so the index ends up matching the file
// exactly.
type IndexWorker struct {
	indexer *indexing.Service
}

func NewIndexWorker(indexer *indexing.Service) *IndexWorker {
	return &IndexWorker{indexer: indexer}
}

func (w *IndexWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.ReindexPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	slog.Info("reindexing transactions", "user_id", payload.UserID, "file", payload.FilePath)

	f, err := os.Open(payload.FilePath)
	if err != nil {
		return fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()

	indexed, err := w.indexer.Load(ctx, f, payload.UserID, true)
	if err != nil {
		return fmt.Errorf("reindex user %d: %w", payload.UserID, err)
	}

	slog.Info("reindex done", "user_id", payload.UserID, "indexed", indexed)
	return nil
}
