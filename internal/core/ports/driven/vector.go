package driven

import (
	"context"

	"github.com/custodia-labs/askbase/internal/core/domain"
)

// VectorIndex stores chunk vectors and answers nearest-neighbour queries.
type VectorIndex interface {
	// Add inserts a vector for the given chunk.
	Add(ctx context.Context, chunkID string, embedding []float32) error

	// AddBatch inserts vectors for multiple chunks in insertion order.
	AddBatch(ctx context.Context, chunkIDs []string, embeddings [][]float32) error

	// Delete removes the vectors for the given chunk ids.
	Delete(ctx context.Context, chunkIDs []string) error

	// Search finds the k best matches for the query vector under the
	// given metric. For cosine, results scoring at or below threshold are
	// dropped; other metrics ignore threshold. An empty result is not an
	// error. Ties preserve insertion order.
	Search(ctx context.Context, query []float32, k int, metric domain.Metric, threshold float64) ([]VectorHit, error)

	// Close releases resources.
	Close() error
}

// VectorHit is a single similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the similarity (cosine, inner product) or distance (L2).
	Score float64
}
