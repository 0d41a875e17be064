package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nktrudik/finly-backend/internal/auth"
	"github.com/nktrudik/finly-backend/internal/indexing"
	"github.com/nktrudik/finly-backend/internal/queue"
	"github.com/nktrudik/finly-backend/internal/transaction"
)

type TransactionHandler struct {
	indexer   *indexing.Service
	queue     *queue.Client
	uploadDir string
}

func NewTransactionHandler(indexer *indexing.Service, qc *queue.Client, uploadDir string) *TransactionHandler {
	return &TransactionHandler{indexer: indexer, queue: qc, uploadDir: uploadDir}
}

type uploadStatistics struct {
	Indexed     int    `json:"indexed"`
	CountBefore uint64 `json:"count_before"`
	CountAfter  uint64 `json:"count_after"`
	Replaced    bool   `json:"replaced"`
}

// Upload ingests a CSV statement. With replace=true the user's existing
// points are dropped first, otherwise the upload merges in: re-uploading
// the same rows overwrites the same points.
func (h *TransactionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only CSV files are supported"})
		return
	}

	replace := r.FormValue("replace") == "true"

	path, err := h.storeUpload(file, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store upload failed"})
		return
	}

	f, err := os.Open(path)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "read upload failed"})
		return
	}
	defer f.Close()

	countBefore := h.indexer.CountUser(r.Context(), userID)

	indexed, err := h.indexer.Load(r.Context(), f, userID, replace)
	var parseErr *transaction.ParseError
	if errors.As(err, &parseErr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": parseErr.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	countAfter := h.indexer.CountUser(r.Context(), userID)

	writeJSON(w, http.StatusOK, uploadStatistics{
		Indexed:     indexed,
		CountBefore: countBefore,
		CountAfter:  countAfter,
		Replaced:    replace,
	})
}

// Reindex queues a background rebuild of the user's index from their last
// stored upload.
func (h *TransactionHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	path := h.uploadPath(userID)
	if _, err := os.Stat(path); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no stored upload to reindex"})
		return
	}

	if err := h.queue.EnqueueReindex(queue.ReindexPayload{UserID: userID, FilePath: path}); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "enqueue reindex failed"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reindex queued"})
}

func (h *TransactionHandler) Count(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	count := h.indexer.CountUser(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": count})
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	err := h.indexer.DeleteUser(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": err == nil})
}

func (h *TransactionHandler) storeUpload(src io.Reader, userID int64) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := h.uploadPath(userID)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}

func (h *TransactionHandler) uploadPath(userID int64) string {
	return filepath.Join(h.uploadDir, fmt.Sprintf("user_%d.csv", userID))
}
