package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askbase/internal/core/domain"
)

func TestDocumentLifecycle(t *testing.T) {
	s := NewDocumentStore()
	ctx := context.Background()

	doc := &domain.Document{ID: "d1", Title: "RAG Intro", Content: "text", CreatedAt: time.Now()}
	require.NoError(t, s.SaveDocument(ctx, doc))

	got, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "RAG Intro", got.Title)

	byTitle, err := s.GetDocumentByTitle(ctx, "RAG Intro")
	require.NoError(t, err)
	assert.Equal(t, "d1", byTitle.ID)

	_, err = s.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetDocumentByTitle(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChunksOrderedByIndex(t *testing.T) {
	s := NewDocumentStore()
	ctx := context.Background()

	chunks := []domain.Chunk{
		{ID: "c2", DocumentID: "d1", Content: "second", Index: 1},
		{ID: "c1", DocumentID: "d1", Content: "first", Index: 0},
		{ID: "c3", DocumentID: "d1", Content: "third", Index: 2},
	}
	require.NoError(t, s.SaveChunks(ctx, chunks))

	got, err := s.GetChunks(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, i, c.Index)
	}

	chunk, err := s.GetChunk(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, "second", chunk.Content)
}

func TestDeleteDocumentCascades(t *testing.T) {
	s := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, s.SaveDocument(ctx, &domain.Document{ID: "d1", Title: "t"}))
	require.NoError(t, s.SaveChunks(ctx, []domain.Chunk{{ID: "c1", DocumentID: "d1", Index: 0}}))

	require.NoError(t, s.DeleteDocument(ctx, "d1"))

	_, err := s.GetDocument(ctx, "d1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetChunk(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQueryLogAppendOnly(t *testing.T) {
	l := NewQueryLog()
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, &domain.QueryRecord{ID: "q1", QueryText: "one"}))
	require.NoError(t, l.Record(ctx, &domain.QueryRecord{ID: "q2", QueryText: "two"}))

	records, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "q1", records[0].ID)
	assert.Equal(t, "q2", records[1].ID)
	assert.False(t, records[0].CreatedAt.IsZero())
}
