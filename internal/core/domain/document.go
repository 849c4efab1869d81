package domain

import "time"

// Document represents an ingested piece of knowledge-base text.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable title surfaced in citations.
	Title string

	// Content is the full text before chunking.
	Content string

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last re-ingested.
	UpdatedAt time.Time
}

// Chunk represents a retrievable unit within a document.
// Chunks are created only through ingestion and are immutable afterwards;
// re-ingesting or deleting a document destroys its chunks.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Index is the 0-based ordinal position within the document.
	// Indices are contiguous per document.
	Index int

	// Embedding is the vector representation for similarity search.
	// Its dimension is fixed by the embedding provider in use.
	Embedding []float32
}

// Source identifies a document cited in an answer.
// Sources are derived per query and never persisted.
type Source struct {
	// DocumentID is the cited document's id. It may be empty when a title
	// reported by a tool could not be resolved against the store.
	DocumentID string

	// Title is the cited document's title.
	Title string
}

// Answer is the result of one query through the pipeline.
type Answer struct {
	// Text is the assistant's reply.
	Text string

	// Sources lists the documents the reply drew on, deduplicated.
	Sources []Source
}

// RetrievedChunk pairs a chunk with its similarity score for one query.
type RetrievedChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the similarity (cosine, inner product) or distance (L2)
	// depending on the metric used.
	Score float64

	// DocumentTitle is the parent document's title, hydrated for citation.
	DocumentTitle string
}
