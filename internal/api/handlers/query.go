package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nktrudik/finly-backend/internal/auth"
	"github.com/nktrudik/finly-backend/internal/rag"
)

type QueryHandler struct {
	engine *rag.Engine
}

func NewQueryHandler(engine *rag.Engine) *QueryHandler {
	return &QueryHandler{engine: engine}
}

type queryRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if len(req.Query) < 3 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query must be at least 3 characters"})
		return
	}

	resp, err := h.engine.Ask(r.Context(), req.Query, userID, req.Limit)
	if err != nil {
		// Retrieval succeeded but generation failed: still hand back
		// the transactions so the caller can show something.
		body := map[string]interface{}{"error": err.Error()}
		if resp != nil {
			body["transactions"] = resp.Transactions
			body["found_count"] = resp.FoundCount
		}
		writeJSON(w, http.StatusBadGateway, body)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
