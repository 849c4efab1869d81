package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/askbase/internal/core/domain"
	"github.com/custodia-labs/askbase/internal/core/ports/driven"
	"github.com/custodia-labs/askbase/internal/logger"
)

// Retrieval defaults.
const (
	// DefaultTopK is how many chunks a search returns when unconfigured.
	DefaultTopK = 5

	// DefaultThreshold is the minimum cosine similarity for a chunk to
	// count as relevant. Scores at or below it are dropped.
	DefaultThreshold = 0.3
)

// Retriever turns a text query into scored, hydrated chunks. It is the
// retrieval half shared by the query flows and the search tool.
type Retriever struct {
	embedding driven.EmbeddingService
	vectors   driven.VectorIndex
	documents driven.DocumentStore
	metric    domain.Metric
	threshold float64
}

// NewRetriever creates a retriever. An invalid metric falls back to
// cosine; a zero threshold falls back to DefaultThreshold.
func NewRetriever(
	embedding driven.EmbeddingService,
	vectors driven.VectorIndex,
	documents driven.DocumentStore,
	metric domain.Metric,
	threshold float64,
) *Retriever {
	if !metric.Valid() {
		metric = domain.MetricCosine
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Retriever{
		embedding: embedding,
		vectors:   vectors,
		documents: documents,
		metric:    metric,
		threshold: threshold,
	}
}

// Retrieve embeds the query and returns the k best chunks with their
// document titles, plus the query embedding itself. An empty result is
// not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, []float32, error) {
	if r.embedding == nil {
		return nil, nil, domain.ErrEmbeddingUnavailable
	}
	if k <= 0 {
		k = DefaultTopK
	}

	embedding, err := r.embedding.Embed(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := r.vectors.Search(ctx, embedding, k, r.metric, r.threshold)
	if err != nil {
		return nil, nil, fmt.Errorf("searching vectors: %w", err)
	}
	logger.Debug("Retrieved %d/%d chunks above threshold %.2f", len(hits), k, r.threshold)

	chunks := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		chunk, err := r.documents.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			// The vector index can briefly lead the store during a
			// reingest. Skip rather than fail the whole query.
			logger.Warn("Chunk %s missing from store: %v", hit.ChunkID, err)
			continue
		}

		title := ""
		if doc, err := r.documents.GetDocument(ctx, chunk.DocumentID); err == nil {
			title = doc.Title
		}

		chunks = append(chunks, domain.RetrievedChunk{
			Chunk:         *chunk,
			Score:         hit.Score,
			DocumentTitle: title,
		})
	}
	return chunks, embedding, nil
}
