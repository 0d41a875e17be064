package vectorstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "sparse"
)

// QdrantStore keeps all users' transactions in one collection with two
// named vectors per point; every read and write carries the user_id
// payload filter.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

func NewQdrantStore(client *qdrant.Client, collection string) *QdrantStore {
	return &QdrantStore{client: client, collection: collection}
}

// EnsureCollection creates the collection (cosine dense vectors plus
// IDF-weighted sparse vectors) and the payload indexes used for filtering,
// if they do not exist yet.
func (s *QdrantStore) EnsureCollection(ctx context.Context, denseSize uint64) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
				denseVectorName: {Size: denseSize, Distance: qdrant.Distance_Cosine},
			}),
			SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
				sparseVectorName: {Modifier: qdrant.Modifier_Idf.Enum()},
			}),
		})
		if err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}

	indexes := []struct {
		field string
		typ   qdrant.FieldType
	}{
		{"user_id", qdrant.FieldType_FieldTypeInteger},
		{"year", qdrant.FieldType_FieldTypeInteger},
		{"month", qdrant.FieldType_FieldTypeInteger},
		{"quarter", qdrant.FieldType_FieldTypeInteger},
		{"category", qdrant.FieldType_FieldTypeKeyword},
		{"is_expense", qdrant.FieldType_FieldTypeBool},
	}
	for _, idx := range indexes {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      idx.field,
			FieldType:      idx.typ.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create payload index %s: %w", idx.field, err)
		}
	}
	return nil
}

// Health reports whether the backend is reachable.
func (s *QdrantStore) Health(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health: %w", err)
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		structs[i] = &qdrant.PointStruct{
			Id: qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				denseVectorName:  qdrant.NewVectorDense(p.Dense),
				sparseVectorName: qdrant.NewVectorSparse(p.Sparse.Indices, p.Sparse.Values),
			}),
			Payload: qdrant.NewValueMap(p.Payload),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         structs,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

func (s *QdrantStore) SearchDense(ctx context.Context, vector []float32, opts SearchOptions) ([]Hit, error) {
	return s.query(ctx, qdrant.NewQueryDense(vector), denseVectorName, opts)
}

func (s *QdrantStore) SearchSparse(ctx context.Context, vector SparseVector, opts SearchOptions) ([]Hit, error) {
	return s.query(ctx, qdrant.NewQuerySparse(vector.Indices, vector.Values), sparseVectorName, opts)
}

func (s *QdrantStore) query(ctx context.Context, query *qdrant.Query, using string, opts SearchOptions) ([]Hit, error) {
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          query,
		Using:          qdrant.PtrOf(using),
		Filter:         userFilter(opts.UserID),
		Limit:          qdrant.PtrOf(uint64(opts.Limit)),
		ScoreThreshold: qdrant.PtrOf(opts.ScoreThreshold),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", using, err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			ID:      r.GetId().GetUuid(),
			Score:   r.GetScore(),
			Payload: payloadMap(r.GetPayload()),
		}
	}
	return hits, nil
}

func (s *QdrantStore) DeleteUser(ctx context.Context, userID int64) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelectorFilter(userFilter(userID)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("delete user points: %w", err)
	}
	return nil
}

func (s *QdrantStore) CountUser(ctx context.Context, userID int64) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         userFilter(userID),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("count user points: %w", err)
	}
	return count, nil
}

func userFilter(userID int64) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatchInt("user_id", userID)},
	}
}

func payloadMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[k] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			out[k] = kind.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[k] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			out[k] = kind.BoolValue
		}
	}
	return out
}
