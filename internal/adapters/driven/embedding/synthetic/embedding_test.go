package synthetic

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askbase/internal/core/domain"
)

func TestEmbed_Deterministic(t *testing.T) {
	s := NewEmbeddingService(64)
	ctx := context.Background()

	a, err := s.Embed(ctx, "hello world")
	require.NoError(t, err)
	b, err := s.Embed(ctx, "hello world")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := s.Embed(ctx, "something else")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestEmbed_UnitNorm(t *testing.T) {
	s := NewEmbeddingService(128)

	vec, err := s.Embed(context.Background(), "normalise me")
	require.NoError(t, err)
	require.Len(t, vec, 128)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestEmbed_EmptyText(t *testing.T) {
	s := NewEmbeddingService(0)
	assert.Equal(t, DefaultDimensions, s.Dimensions())

	_, err := s.Embed(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	s := NewEmbeddingService(32)
	ctx := context.Background()

	texts := []string{"one", "two", "three"}
	batch, err := s.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := s.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestEmbed_DimensionNotMultipleOfEight(t *testing.T) {
	s := NewEmbeddingService(13)

	vec, err := s.Embed(context.Background(), "odd size")
	require.NoError(t, err)
	require.Len(t, vec, 13)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.False(t, math.IsNaN(norm))
	assert.InDelta(t, 1.0, norm, 1e-5)
}
