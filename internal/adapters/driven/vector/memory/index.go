// Package memory provides a brute-force in-memory vector index.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/askbase/internal/core/domain"
	"github.com/custodia-labs/askbase/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	chunkID   string
	embedding []float32
}

// Index is an exact nearest-neighbour index over all stored vectors.
// Entries keep insertion order, which also breaks score ties.
type Index struct {
	mu        sync.RWMutex
	dimension int
	entries   []entry
}

// NewIndex creates an empty index. The first inserted vector fixes the
// dimension; later inserts and queries must match it.
func NewIndex() *Index {
	return &Index{}
}

// Add inserts a vector for the given chunk.
func (x *Index) Add(_ context.Context, chunkID string, embedding []float32) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.add(chunkID, embedding)
}

// AddBatch inserts vectors for multiple chunks in order.
func (x *Index) AddBatch(_ context.Context, chunkIDs []string, embeddings [][]float32) error {
	if len(chunkIDs) != len(embeddings) {
		return domain.ErrInvalidInput
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for i, id := range chunkIDs {
		if err := x.add(id, embeddings[i]); err != nil {
			return err
		}
	}
	return nil
}

func (x *Index) add(chunkID string, embedding []float32) error {
	if len(embedding) == 0 {
		return domain.ErrInvalidInput
	}
	if x.dimension == 0 {
		x.dimension = len(embedding)
	} else if len(embedding) != x.dimension {
		return domain.ErrDimensionMismatch
	}
	x.entries = append(x.entries, entry{chunkID: chunkID, embedding: embedding})
	return nil
}

// Delete removes the vectors for the given chunk ids.
func (x *Index) Delete(_ context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(chunkIDs))
	for _, id := range chunkIDs {
		drop[id] = struct{}{}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	kept := x.entries[:0]
	for _, e := range x.entries {
		if _, gone := drop[e.chunkID]; !gone {
			kept = append(kept, e)
		}
	}
	x.entries = kept
	return nil
}

// Search ranks all stored vectors against the query under the given
// metric. Cosine hits scoring at or below threshold are dropped; L2 and
// inner product ignore threshold. Returning no hits is not an error.
func (x *Index) Search(_ context.Context, query []float32, k int, metric domain.Metric, threshold float64) ([]driven.VectorHit, error) {
	if !metric.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if k <= 0 {
		k = 5
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.entries) > 0 && len(query) != x.dimension {
		return nil, domain.ErrDimensionMismatch
	}

	hits := make([]driven.VectorHit, 0, len(x.entries))
	for _, e := range x.entries {
		score := score(metric, query, e.embedding)
		if metric == domain.MetricCosine && score <= threshold {
			continue
		}
		hits = append(hits, driven.VectorHit{ChunkID: e.chunkID, Score: score})
	}

	// Stable sort keeps insertion order for equal scores.
	ascending := metric == domain.MetricL2
	sort.SliceStable(hits, func(i, j int) bool {
		if ascending {
			return hits[i].Score < hits[j].Score
		}
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

func score(metric domain.Metric, a, b []float32) float64 {
	switch metric {
	case domain.MetricL2:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	case domain.MetricInnerProduct:
		return dot(a, b)
	default: // cosine similarity
		na, nb := norm(a), norm(b)
		if na == 0 || nb == 0 {
			return 0
		}
		return dot(a, b) / (na * nb)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
