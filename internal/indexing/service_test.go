package indexing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nktrudik/finly-backend/internal/embedding"
	"github.com/nktrudik/finly-backend/internal/transaction"
	"github.com/nktrudik/finly-backend/internal/vectorstore"
)

type fakeStore struct {
	upserts     [][]vectorstore.Point
	upsertErrOn int // fail the n-th upsert call (1-based), 0 disables
	deleteCalls []int64
	count       uint64
	countErr    error
}

func (f *fakeStore) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if f.upsertErrOn > 0 && len(f.upserts)+1 == f.upsertErrOn {
		return errors.New("upsert failed")
	}
	batch := make([]vectorstore.Point, len(points))
	copy(batch, points)
	f.upserts = append(f.upserts, batch)
	return nil
}

func (f *fakeStore) SearchDense(ctx context.Context, vector []float32, opts vectorstore.SearchOptions) ([]vectorstore.Hit, error) {
	return nil, nil
}

func (f *fakeStore) SearchSparse(ctx context.Context, vector vectorstore.SparseVector, opts vectorstore.SearchOptions) ([]vectorstore.Hit, error) {
	return nil, nil
}

func (f *fakeStore) DeleteUser(ctx context.Context, userID int64) error {
	f.deleteCalls = append(f.deleteCalls, userID)
	return nil
}

func (f *fakeStore) CountUser(ctx context.Context, userID int64) (uint64, error) {
	return f.count, f.countErr
}

type fakeEmbedder struct {
	batches [][]string
	err     error
	short   bool
}

func (f *fakeEmbedder) EmbedDense(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

func (f *fakeEmbedder) EmbedSparse(ctx context.Context, text string) (embedding.SparseVector, error) {
	return embedding.SparseVector{}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, []embedding.SparseVector, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.batches = append(f.batches, texts)
	n := len(texts)
	if f.short {
		n--
	}
	dense := make([][]float32, n)
	sparse := make([]embedding.SparseVector, n)
	for i := range dense {
		dense[i] = []float32{float32(i)}
		sparse[i] = embedding.SparseVector{Indices: []uint32{uint32(i)}, Values: []float32{1}}
	}
	return dense, sparse, nil
}

const csvHeader = "Date;Amount;Category;Description"

func csvRows(rows ...string) string {
	return csvHeader + "\n" + strings.Join(rows, "\n")
}

func TestLoadIndexesAllRows(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeEmbedder{}, 50)

	src := csvRows(
		"01.02.2024;-100;Cafe;coffee",
		"02.02.2024;-200;Taxi;airport",
	)
	n, err := svc.Load(context.Background(), strings.NewReader(src), 7, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, store.upserts, 1)
	assert.Empty(t, store.deleteCalls)

	for _, p := range store.upserts[0] {
		assert.Equal(t, int64(7), p.Payload["user_id"])
	}
}

func TestLoadReplaceDeletesFirst(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeEmbedder{}, 50)

	src := csvRows("01.02.2024;-100;Cafe;coffee")
	_, err := svc.Load(context.Background(), strings.NewReader(src), 7, true)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, store.deleteCalls)
}

func TestLoadIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeEmbedder{}, 50)

	src := csvRows("01.02.2024;-100;Cafe;coffee")
	_, err := svc.Load(context.Background(), strings.NewReader(src), 7, false)
	require.NoError(t, err)
	_, err = svc.Load(context.Background(), strings.NewReader(src), 7, false)
	require.NoError(t, err)

	require.Len(t, store.upserts, 2)
	assert.Equal(t, store.upserts[0][0].ID, store.upserts[1][0].ID)
}

func TestLoadBatchesUpserts(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeEmbedder{}, 2)

	src := csvRows(
		"01.02.2024;-1;Cafe;a",
		"02.02.2024;-2;Cafe;b",
		"03.02.2024;-3;Cafe;c",
		"04.02.2024;-4;Cafe;d",
		"05.02.2024;-5;Cafe;e",
	)
	n, err := svc.Load(context.Background(), strings.NewReader(src), 7, false)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.Len(t, store.upserts, 3)
	assert.Len(t, store.upserts[0], 2)
	assert.Len(t, store.upserts[2], 1)
}

func TestLoadPartialFailureReportsProcessed(t *testing.T) {
	store := &fakeStore{upsertErrOn: 2}
	svc := NewService(store, &fakeEmbedder{}, 2)

	src := csvRows(
		"01.02.2024;-1;Cafe;a",
		"02.02.2024;-2;Cafe;b",
		"03.02.2024;-3;Cafe;c",
	)
	n, err := svc.Load(context.Background(), strings.NewReader(src), 7, false)
	require.Error(t, err)
	assert.Equal(t, 2, n)
}

func TestLoadTypedParseError(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeEmbedder{}, 50)

	_, err := svc.Load(context.Background(), strings.NewReader("Date;Amount\n"), 7, false)
	require.Error(t, err)

	var parseErr *transaction.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestLoadNoRecordsIsNotAnError(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeEmbedder{}, 50)

	n, err := svc.Load(context.Background(), strings.NewReader(csvHeader+"\n"), 7, false)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.upserts)
}

func TestLoadEmbeddingFailurePropagates(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeEmbedder{err: errors.New("embed down")}, 50)

	src := csvRows("01.02.2024;-1;Cafe;a")
	_, err := svc.Load(context.Background(), strings.NewReader(src), 7, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed")
}

func TestLoadRejectsVectorCountMismatch(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeEmbedder{short: true}, 50)

	src := csvRows(
		"01.02.2024;-1;Cafe;a",
		"02.02.2024;-2;Cafe;b",
	)
	_, err := svc.Load(context.Background(), strings.NewReader(src), 7, false)
	require.Error(t, err)
}

func TestCountUserDegradesToZero(t *testing.T) {
	svc := NewService(&fakeStore{countErr: errors.New("backend down")}, &fakeEmbedder{}, 50)
	assert.Zero(t, svc.CountUser(context.Background(), 7))

	svc = NewService(&fakeStore{count: 42}, &fakeEmbedder{}, 50)
	assert.Equal(t, uint64(42), svc.CountUser(context.Background(), 7))
}
