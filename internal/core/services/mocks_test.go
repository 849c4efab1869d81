package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/askbase/internal/core/domain"
	"github.com/custodia-labs/askbase/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbedding implements driven.EmbeddingService with a fixed vector
// per text. Unknown texts get the fallback vector.
type mockEmbedding struct {
	vectors  map[string][]float32
	fallback []float32
	embedErr error
	dims     int
	calls    int
}

func newMockEmbedding(dims int) *mockEmbedding {
	return &mockEmbedding{
		vectors:  make(map[string][]float32),
		fallback: make([]float32, dims),
		dims:     dims,
	}
}

func (m *mockEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	return m.fallback, nil
}

func (m *mockEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbedding) Dimensions() int            { return m.dims }
func (m *mockEmbedding) ModelName() string          { return "mock-embed" }
func (m *mockEmbedding) Ping(context.Context) error { return nil }
func (m *mockEmbedding) Close() error               { return nil }

// mockChat implements driven.ChatService with scripted responses. Each
// Complete call consumes the next response and records what it was sent.
type mockChat struct {
	responses []*driven.ChatResult
	err       error

	gotMessages [][]domain.ChatTurn
	gotOpts     []driven.CompleteOptions
}

func (m *mockChat) Complete(_ context.Context, messages []domain.ChatTurn, opts driven.CompleteOptions) (*driven.ChatResult, error) {
	snapshot := make([]domain.ChatTurn, len(messages))
	copy(snapshot, messages)
	m.gotMessages = append(m.gotMessages, snapshot)
	m.gotOpts = append(m.gotOpts, opts)

	if m.err != nil {
		return nil, m.err
	}
	call := len(m.gotMessages) - 1
	if call >= len(m.responses) {
		return nil, fmt.Errorf("unexpected completion call %d", call)
	}
	return m.responses[call], nil
}

func (m *mockChat) ModelName() string          { return "mock-chat" }
func (m *mockChat) Ping(context.Context) error { return nil }
func (m *mockChat) Close() error               { return nil }

// userMessage builds a user-role message for test conversations.
func userMessage(content string) domain.Message {
	return domain.Message{Role: domain.RoleUser, Content: content}
}
