package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askbase/internal/core/domain"
)

func seedIndex(t *testing.T) *Index {
	t.Helper()
	x := NewIndex()
	ctx := context.Background()
	require.NoError(t, x.Add(ctx, "a", []float32{1, 0, 0}))
	require.NoError(t, x.Add(ctx, "b", []float32{0.9, 0.1, 0}))
	require.NoError(t, x.Add(ctx, "c", []float32{0, 1, 0}))
	require.NoError(t, x.Add(ctx, "d", []float32{0, 0, 1}))
	return x
}

func TestSearch_CosineOrderingAndThreshold(t *testing.T) {
	x := seedIndex(t)

	hits, err := x.Search(context.Background(), []float32{1, 0, 0}, 10, domain.MetricCosine, 0.3)
	require.NoError(t, err)

	// Only "a" and "b" clear the 0.3 threshold against (1,0,0).
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ChunkID)
	assert.Equal(t, "b", hits[1].ChunkID)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i].Score, hits[i-1].Score, "cosine scores must be non-increasing")
	}
	for _, h := range hits {
		assert.Greater(t, h.Score, 0.3)
	}
}

func TestSearch_ThresholdCanEmptyResult(t *testing.T) {
	x := seedIndex(t)

	hits, err := x.Search(context.Background(), []float32{1, 0, 0}, 10, domain.MetricCosine, 0.999)
	require.NoError(t, err)
	assert.Len(t, hits, 1, "only the exact match scores above 0.999")

	hits, err = x.Search(context.Background(), []float32{-1, 0, 0}, 10, domain.MetricCosine, 0.3)
	require.NoError(t, err)
	assert.Empty(t, hits, "no hits is a valid result, not an error")
}

func TestSearch_L2AscendingNoThreshold(t *testing.T) {
	x := seedIndex(t)

	hits, err := x.Search(context.Background(), []float32{1, 0, 0}, 10, domain.MetricL2, 0.9)
	require.NoError(t, err)

	// L2 ignores the threshold entirely.
	require.Len(t, hits, 4)
	assert.Equal(t, "a", hits[0].ChunkID)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i].Score, hits[i-1].Score, "distances must be non-decreasing")
	}
}

func TestSearch_InnerProductDescending(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	require.NoError(t, x.Add(ctx, "small", []float32{1, 0}))
	require.NoError(t, x.Add(ctx, "large", []float32{5, 0}))

	hits, err := x.Search(ctx, []float32{1, 0}, 10, domain.MetricInnerProduct, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "large", hits[0].ChunkID, "inner product rewards magnitude")
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	require.NoError(t, x.Add(ctx, "first", []float32{1, 0}))
	require.NoError(t, x.Add(ctx, "second", []float32{2, 0}))
	require.NoError(t, x.Add(ctx, "third", []float32{3, 0}))

	// All three are cosine-identical to the query.
	hits, err := x.Search(ctx, []float32{1, 0}, 10, domain.MetricCosine, 0.3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{hits[0].ChunkID, hits[1].ChunkID, hits[2].ChunkID})
}

func TestSearch_TruncatesToK(t *testing.T) {
	x := seedIndex(t)
	hits, err := x.Search(context.Background(), []float32{1, 0, 0}, 1, domain.MetricCosine, 0.3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ChunkID)
}

func TestAdd_DimensionMismatch(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	require.NoError(t, x.Add(ctx, "a", []float32{1, 2, 3}))

	err := x.Add(ctx, "b", []float32{1, 2})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = x.Search(ctx, []float32{1, 2}, 5, domain.MetricCosine, 0.3)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestDelete(t *testing.T) {
	x := seedIndex(t)
	ctx := context.Background()

	require.NoError(t, x.Delete(ctx, []string{"a", "b"}))

	hits, err := x.Search(ctx, []float32{1, 0, 0}, 10, domain.MetricL2, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.NotContains(t, []string{"a", "b"}, h.ChunkID)
	}
}

func TestAddBatch_LengthMismatch(t *testing.T) {
	x := NewIndex()
	err := x.AddBatch(context.Background(), []string{"a"}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
