package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askbase/internal/core/domain"
)

func TestGetOrCreate(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	conv, err := s.GetOrCreate(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", conv.SessionID)
	assert.Empty(t, conv.Messages)
	assert.False(t, conv.LastActivity.IsZero())

	// Second call returns the same conversation and touches activity.
	earlier := conv.LastActivity
	s.now = func() time.Time { return earlier.Add(time.Minute) }
	again, err := s.GetOrCreate(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, again.LastActivity.After(earlier))
}

func TestGetOrCreate_EmptySessionID(t *testing.T) {
	s := NewConversationStore()
	_, err := s.GetOrCreate(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAppend_Monotonic(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	conv, err := s.Append(ctx, "sess-1", domain.Message{Role: domain.RoleUser, Content: "hello"})
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)

	conv, err = s.Append(ctx, "sess-1", domain.Message{Role: domain.RoleAssistant, Content: "hi"})
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)

	// Prior messages are unchanged and unreordered.
	assert.Equal(t, domain.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "hello", conv.Messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, conv.Messages[1].Role)
}

func TestAppend_SnapshotDoesNotAlias(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	conv, err := s.Append(ctx, "sess-1", domain.Message{Role: domain.RoleUser, Content: "hello"})
	require.NoError(t, err)
	conv.Messages[0].Content = "mutated"

	fresh, err := s.GetOrCreate(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", fresh.Messages[0].Content)
}

func TestClear(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	_, err := s.Append(ctx, "sess-1", domain.Message{Role: domain.RoleUser, Content: "hello"})
	require.NoError(t, err)
	require.NoError(t, s.Clear(ctx, "sess-1"))

	conv, err := s.GetOrCreate(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, conv.Messages)

	// Clearing an unknown session is a no-op.
	assert.NoError(t, s.Clear(ctx, "missing"))
}

func TestDeleteWhereSessionNotIn(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.GetOrCreate(ctx, id)
		require.NoError(t, err)
	}

	active := map[string]struct{}{"b": {}}
	deleted, err := s.DeleteWhereSessionNotIn(ctx, active)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	// Still-active conversations survive.
	conv, err := s.GetOrCreate(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", conv.SessionID)
}

func TestHistoryProjection(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	_, err := s.Append(ctx, "sess-1", domain.Message{Role: domain.RoleUser, Content: "q"})
	require.NoError(t, err)
	conv, err := s.Append(ctx, "sess-1", domain.Message{Role: domain.RoleTool, Content: "result", ToolCallID: "call-1"})
	require.NoError(t, err)

	turns := conv.History()
	require.Len(t, turns, 2)
	assert.Equal(t, domain.ChatTurn{Role: domain.RoleUser, Content: "q"}, turns[0])
	assert.Equal(t, domain.ChatTurn{Role: domain.RoleTool, Content: "result", ToolCallID: "call-1"}, turns[1])
}
