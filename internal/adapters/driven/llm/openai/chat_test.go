package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askbase/internal/core/domain"
	"github.com/custodia-labs/askbase/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (*ChatService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewChatService(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	return svc, server
}

func TestComplete_TextReply(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Empty(t, req.Tools)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"hello"},"finish_reason":"stop"}]}`))
	})

	result, err := svc.Complete(context.Background(), []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "hi"},
	}, driven.CompleteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Text)
	assert.Empty(t, result.ToolCalls)
}

func TestComplete_ToolCalls(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "function", req.Tools[0].Type)
		assert.Equal(t, "search_knowledge_base", req.Tools[0].Function.Name)
		assert.Equal(t, "auto", req.ToolChoice)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"","tool_calls":[
			{"id":"call_abc","type":"function","function":{"name":"search_knowledge_base","arguments":"{\"query\":\"chunking\"}"}}
		]},"finish_reason":"tool_calls"}]}`))
	})

	result, err := svc.Complete(context.Background(), []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "what is chunking?"},
	}, driven.CompleteOptions{
		Tools: []driven.ToolDefinition{{
			Name:        "search_knowledge_base",
			Description: "Search the knowledge base",
			Parameters:  map[string]any{"type": "object"},
		}},
		ToolChoiceAuto: true,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Text)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "call_abc", result.ToolCalls[0].ID)
	assert.Equal(t, "search_knowledge_base", result.ToolCalls[0].Name)
	assert.JSONEq(t, `{"query":"chunking"}`, string(result.ToolCalls[0].Arguments))
}

func TestComplete_RoundTripsToolHistory(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 3)

		assistant := req.Messages[1]
		require.Len(t, assistant.ToolCalls, 1)
		assert.Equal(t, "call_abc", assistant.ToolCalls[0].ID)

		toolMsg := req.Messages[2]
		assert.Equal(t, "tool", toolMsg.Role)
		assert.Equal(t, "call_abc", toolMsg.ToolCallID)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"chunking splits documents"},"finish_reason":"stop"}]}`))
	})

	result, err := svc.Complete(context.Background(), []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "what is chunking?"},
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{
			{ID: "call_abc", Name: "search_knowledge_base", Arguments: json.RawMessage(`{"query":"chunking"}`)},
		}},
		{Role: domain.RoleTool, Content: `{"results":[]}`, ToolCallID: "call_abc"},
	}, driven.CompleteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "chunking splits documents", result.Text)
}

func TestComplete_APIError(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
	})

	_, err := svc.Complete(context.Background(), []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "hi"},
	}, driven.CompleteOptions{})
	require.Error(t, err)

	var chatErr *domain.ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.Equal(t, "openai", chatErr.Provider)
}

func TestNewChatService_RequiresAPIKey(t *testing.T) {
	_, err := NewChatService(Config{})
	assert.Error(t, err)
}
