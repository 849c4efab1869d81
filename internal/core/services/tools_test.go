package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagemem "github.com/custodia-labs/askbase/internal/adapters/driven/storage/memory"
	vectormem "github.com/custodia-labs/askbase/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/askbase/internal/core/domain"
	"github.com/custodia-labs/askbase/internal/core/ports/driven"
)

// stubTool is a minimal Tool for registry tests.
type stubTool struct {
	name   string
	result string
	err    error
	calls  int
}

func (t *stubTool) Definition() driven.ToolDefinition {
	return driven.ToolDefinition{Name: t.name, Description: "stub", Parameters: map[string]any{"type": "object"}}
}

func (t *stubTool) Execute(context.Context, json.RawMessage) (string, error) {
	t.calls++
	return t.result, t.err
}

func TestNewToolRegistry_Validation(t *testing.T) {
	_, err := NewToolRegistry(&stubTool{name: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewToolRegistry(&stubTool{name: "a"}, &stubTool{name: "a"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestToolRegistry_DefinitionsKeepOrder(t *testing.T) {
	r, err := NewToolRegistry(&stubTool{name: "b"}, &stubTool{name: "a"}, &stubTool{name: "c"})
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())

	defs := r.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "b", defs[0].Name)
	assert.Equal(t, "a", defs[1].Name)
	assert.Equal(t, "c", defs[2].Name)
}

func TestToolRegistry_ExecuteUnknown(t *testing.T) {
	r, err := NewToolRegistry(&stubTool{name: "known"})
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), domain.ToolCall{Name: "mystery"})
	assert.ErrorIs(t, err, domain.ErrUnknownTool)
}

// newSearchToolFixture indexes two single-chunk documents whose vectors
// are hand-picked for known cosine scores against the query [1,0].
func newSearchToolFixture(t *testing.T) *SearchTool {
	t.Helper()
	ctx := context.Background()

	docs := storagemem.NewDocumentStore()
	vectors := vectormem.NewIndex()

	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{ID: "d1", Title: "Alpha"}))
	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{ID: "d2", Title: "Beta"}))
	require.NoError(t, docs.SaveChunks(ctx, []domain.Chunk{{ID: "c1", DocumentID: "d1", Content: "alpha text", Index: 0}}))
	require.NoError(t, docs.SaveChunks(ctx, []domain.Chunk{{ID: "c2", DocumentID: "d2", Content: "beta text", Index: 0}}))

	// c1 scores 1.0 against the query, c2 scores 0.8.
	require.NoError(t, vectors.Add(ctx, "c1", []float32{1, 0}))
	require.NoError(t, vectors.Add(ctx, "c2", []float32{0.8, 0.6}))

	embedding := newMockEmbedding(2)
	embedding.fallback = []float32{1, 0}

	return NewSearchTool(NewRetriever(embedding, vectors, docs, domain.MetricCosine, DefaultThreshold))
}

func TestSearchTool_Execute(t *testing.T) {
	tool := newSearchToolFixture(t)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"alpha"}`))
	require.NoError(t, err)

	var reply searchReply
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	require.Len(t, reply.Results, 2)

	assert.Equal(t, "Alpha", reply.Results[0].Title)
	assert.Equal(t, "alpha text", reply.Results[0].Content)
	assert.InDelta(t, 100.0, reply.Results[0].RelevancePercent, 0.01)

	assert.Equal(t, "Beta", reply.Results[1].Title)
	assert.InDelta(t, 80.0, reply.Results[1].RelevancePercent, 0.01)
}

func TestSearchTool_ClampsNumResults(t *testing.T) {
	tool := newSearchToolFixture(t)
	ctx := context.Background()

	// Below the floor: clamped to 1.
	out, err := tool.Execute(ctx, json.RawMessage(`{"query":"alpha","num_results":-3}`))
	require.NoError(t, err)
	var reply searchReply
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	assert.Len(t, reply.Results, 1)

	// Above the ceiling: clamped to 20, which still returns everything.
	out, err = tool.Execute(ctx, json.RawMessage(`{"query":"alpha","num_results":500}`))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	assert.Len(t, reply.Results, 2)
}

func TestSearchTool_EmptyResultIsValid(t *testing.T) {
	docs := storagemem.NewDocumentStore()
	vectors := vectormem.NewIndex()
	embedding := newMockEmbedding(2)
	embedding.fallback = []float32{1, 0}
	tool := NewSearchTool(NewRetriever(embedding, vectors, docs, domain.MetricCosine, DefaultThreshold))

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"anything"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[]}`, out)
}

func TestSearchTool_BadArguments(t *testing.T) {
	tool := newSearchToolFixture(t)
	ctx := context.Background()

	_, err := tool.Execute(ctx, json.RawMessage(`{not json`))
	assert.Error(t, err)

	_, err = tool.Execute(ctx, json.RawMessage(`{"num_results":3}`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
