package vectorstore

import "context"

// SparseVector is a lexical term vector: parallel index/value lists.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// Point is one indexed transaction carrying both named vectors and its
// payload.
type Point struct {
	ID      string
	Dense   []float32
	Sparse  SparseVector
	Payload map[string]any
}

// Hit is a single search result.
type Hit struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// SearchOptions scope a search to one user. The user filter is the only
// isolation between users in the shared collection, so there is no
// unfiltered variant of any operation.
type SearchOptions struct {
	UserID         int64
	Limit          int
	ScoreThreshold float32
}

type Store interface {
	Upsert(ctx context.Context, points []Point) error
	SearchDense(ctx context.Context, vector []float32, opts SearchOptions) ([]Hit, error)
	SearchSparse(ctx context.Context, vector SparseVector, opts SearchOptions) ([]Hit, error)
	DeleteUser(ctx context.Context, userID int64) error
	CountUser(ctx context.Context, userID int64) (uint64, error)
}
