package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoRelevantContent indicates no chunk cleared the similarity
	// threshold in the pre-retrieval flow.
	ErrNoRelevantContent = errors.New("no relevant documents found")

	// ErrUnknownTool indicates the model requested a tool that is not
	// registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrDimensionMismatch indicates a vector's dimension does not match
	// what the index was built with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrChatUnavailable indicates the chat service is not configured.
	ErrChatUnavailable = errors.New("chat service unavailable")
)

// EmbeddingError wraps a failure from the embedding provider.
// Provider failures abort the enclosing query and are never retried here.
type EmbeddingError struct {
	Provider string
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding provider %s: %v", e.Provider, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// ChatError wraps a failure from the chat provider.
type ChatError struct {
	Provider string
	Err      error
}

func (e *ChatError) Error() string {
	return fmt.Sprintf("chat provider %s: %v", e.Provider, e.Err)
}

func (e *ChatError) Unwrap() error { return e.Err }
