package embedding

import "context"

// SparseVector holds parallel index/value lists for one text.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// Provider turns text into dense and sparse vectors. Batch results keep
// the input order and are deterministic for the same text; the indexing
// engine relies on both.
type Provider interface {
	EmbedDense(ctx context.Context, text string) ([]float32, error)
	EmbedSparse(ctx context.Context, text string) (SparseVector, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, []SparseVector, error)
}
