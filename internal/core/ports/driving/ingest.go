package driving

import (
	"context"

	"github.com/custodia-labs/askbase/internal/core/domain"
)

// IngestService moves document text into the knowledge base.
type IngestService interface {
	// Ingest chunks, embeds and indexes a new document.
	Ingest(ctx context.Context, title, content string) (*domain.Document, error)

	// Reingest replaces a document's content, destroying its previous
	// chunks and vectors.
	Reingest(ctx context.Context, documentID, content string) (*domain.Document, error)

	// Delete removes a document, cascading to chunks and vectors.
	Delete(ctx context.Context, documentID string) error
}
