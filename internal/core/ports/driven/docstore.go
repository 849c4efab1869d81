package driven

import (
	"context"

	"github.com/custodia-labs/askbase/internal/core/domain"
)

// DocumentStore persists documents and their chunks.
// Deleting a document cascades to its chunks.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunks stores the chunks of one document, replacing any
	// previous set.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetDocument retrieves a document by id.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetDocumentByTitle retrieves a document by exact title.
	GetDocumentByTitle(ctx context.Context, title string) (*domain.Document, error)

	// GetChunks retrieves a document's chunks ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a single chunk by id.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// DeleteDocument removes a document and all of its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns all documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)
}

// QueryLog is the append-only audit log of processed queries.
type QueryLog interface {
	// Record appends one query record. Records are never mutated.
	Record(ctx context.Context, rec *domain.QueryRecord) error

	// List returns records in insertion order.
	List(ctx context.Context) ([]domain.QueryRecord, error)
}
