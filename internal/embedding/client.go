package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultBatchSize = 32

// Client calls a fastembed-compatible inference server that serves the
// dense model on /embed and the sparse model on /embed_sparse.
type Client struct {
	baseURL    string
	batchSize  int
	httpClient *http.Client
}

func NewClient(baseURL string, batchSize int) *Client {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Client{
		baseURL:   baseURL,
		batchSize: batchSize,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

type embedRequest struct {
	Inputs []string `json:"inputs"`
}

func (c *Client) EmbedDense(ctx context.Context, text string) ([]float32, error) {
	var out [][]float32
	if err := c.post(ctx, "/embed", embedRequest{Inputs: []string{text}}, &out); err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("embed: expected 1 vector, got %d", len(out))
	}
	return out[0], nil
}

func (c *Client) EmbedSparse(ctx context.Context, text string) (SparseVector, error) {
	var out []SparseVector
	if err := c.post(ctx, "/embed_sparse", embedRequest{Inputs: []string{text}}, &out); err != nil {
		return SparseVector{}, err
	}
	if len(out) != 1 {
		return SparseVector{}, fmt.Errorf("embed_sparse: expected 1 vector, got %d", len(out))
	}
	return out[0], nil
}

// EmbedBatch embeds texts in fixed-size sub-batches, preserving input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, []SparseVector, error) {
	if len(texts) == 0 {
		return nil, nil, nil
	}

	dense := make([][]float32, 0, len(texts))
	sparse := make([]SparseVector, 0, len(texts))

	for i := 0; i < len(texts); i += c.batchSize {
		end := i + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		var denseBatch [][]float32
		if err := c.post(ctx, "/embed", embedRequest{Inputs: batch}, &denseBatch); err != nil {
			return nil, nil, fmt.Errorf("dense batch %d: %w", i/c.batchSize, err)
		}
		var sparseBatch []SparseVector
		if err := c.post(ctx, "/embed_sparse", embedRequest{Inputs: batch}, &sparseBatch); err != nil {
			return nil, nil, fmt.Errorf("sparse batch %d: %w", i/c.batchSize, err)
		}
		if len(denseBatch) != len(batch) || len(sparseBatch) != len(batch) {
			return nil, nil, fmt.Errorf("batch %d: got %d dense / %d sparse vectors for %d texts",
				i/c.batchSize, len(denseBatch), len(sparseBatch), len(batch))
		}

		dense = append(dense, denseBatch...)
		sparse = append(sparse, sparseBatch...)
	}

	return dense, sparse, nil
}

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("embedding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedding server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("embedding server: status %d: %s", resp.StatusCode, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("embedding decode: %w", err)
	}
	return nil
}
