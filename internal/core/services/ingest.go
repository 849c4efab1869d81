package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/askbase/internal/chunker"
	"github.com/custodia-labs/askbase/internal/core/domain"
	"github.com/custodia-labs/askbase/internal/core/ports/driven"
	"github.com/custodia-labs/askbase/internal/core/ports/driving"
	"github.com/custodia-labs/askbase/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService turns raw document text into indexed, searchable chunks.
type IngestService struct {
	chunker   *chunker.Chunker
	embedding driven.EmbeddingService
	documents driven.DocumentStore
	vectors   driven.VectorIndex
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	ck *chunker.Chunker,
	embedding driven.EmbeddingService,
	documents driven.DocumentStore,
	vectors driven.VectorIndex,
) *IngestService {
	if ck == nil {
		ck = chunker.New()
	}
	return &IngestService{
		chunker:   ck,
		embedding: embedding,
		documents: documents,
		vectors:   vectors,
	}
}

// Ingest chunks, embeds and indexes a new document.
func (s *IngestService) Ingest(ctx context.Context, title, content string) (*domain.Document, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return nil, domain.ErrInvalidInput
	}
	if s.embedding == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	logger.Section("Document Ingest")
	logger.Info("Ingesting %q (%d chars)", title, len(content))

	now := time.Now()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.index(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Reingest replaces a document's content, destroying its previous chunks
// and vectors.
func (s *IngestService) Reingest(ctx context.Context, documentID, content string) (*domain.Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrInvalidInput
	}
	if s.embedding == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	doc, err := s.documents.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}

	logger.Section("Document Reingest")
	logger.Info("Reingesting %q (%d chars)", doc.Title, len(content))

	if err := s.dropVectors(ctx, documentID); err != nil {
		return nil, err
	}

	doc.Content = content
	doc.UpdatedAt = time.Now()

	if err := s.index(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes a document, cascading to chunks and vectors.
func (s *IngestService) Delete(ctx context.Context, documentID string) error {
	if _, err := s.documents.GetDocument(ctx, documentID); err != nil {
		return fmt.Errorf("loading document: %w", err)
	}

	if err := s.dropVectors(ctx, documentID); err != nil {
		return err
	}
	if err := s.documents.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	logger.Debug("Deleted document %s", documentID)
	return nil
}

// index chunks and embeds the document, then persists text and vectors.
// The document row is always written before its vectors.
func (s *IngestService) index(ctx context.Context, doc *domain.Document) error {
	pieces := s.chunker.Split(doc.Content)
	if len(pieces) == 0 {
		return domain.ErrInvalidInput
	}
	logger.Debug("Split %q into %d chunks", doc.Title, len(pieces))

	embeddings, err := s.embedding.EmbedBatch(ctx, pieces)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	if len(embeddings) != len(pieces) {
		return fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(pieces), len(embeddings))
	}

	chunks := make([]domain.Chunk, len(pieces))
	chunkIDs := make([]string, len(pieces))
	for i, text := range pieces {
		id := uuid.NewString()
		chunks[i] = domain.Chunk{
			ID:         id,
			DocumentID: doc.ID,
			Content:    text,
			Index:      i,
			Embedding:  embeddings[i],
		}
		chunkIDs[i] = id
	}

	if err := s.documents.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	if err := s.documents.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("saving chunks: %w", err)
	}
	if err := s.vectors.AddBatch(ctx, chunkIDs, embeddings); err != nil {
		return fmt.Errorf("indexing vectors: %w", err)
	}

	logger.Info("Indexed %q: %d chunks", doc.Title, len(chunks))
	return nil
}

// dropVectors removes a document's chunk vectors from the index.
func (s *IngestService) dropVectors(ctx context.Context, documentID string) error {
	chunks, err := s.documents.GetChunks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("loading chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(chunks))
	for i, chunk := range chunks {
		chunkIDs[i] = chunk.ID
	}
	if err := s.vectors.Delete(ctx, chunkIDs); err != nil {
		return fmt.Errorf("removing vectors: %w", err)
	}
	return nil
}
