package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/askbase/internal/core/domain"
	"github.com/custodia-labs/askbase/internal/core/ports/driven"
	"github.com/custodia-labs/askbase/internal/core/ports/driving"
	"github.com/custodia-labs/askbase/internal/logger"
)

// Ensure QueryOrchestrator implements the interface.
var _ driving.QueryService = (*QueryOrchestrator)(nil)

// contextSystemPrompt frames the pre-retrieval flow. The retrieved
// passages are appended below it.
const contextSystemPrompt = `You are a helpful assistant answering questions from a knowledge base.
Answer using ONLY the context below. If the context does not contain the
answer, say so plainly.`

// toolSystemPrompt frames the tool-calling flow.
const toolSystemPrompt = `You are a helpful assistant with access to a knowledge base.
Use the search_knowledge_base tool when you need facts to answer the
question. Answer from the tool results; if they do not contain the
answer, say so plainly.`

// QueryOrchestrator runs questions through one of two flows. The flow is
// fixed when the orchestrator is constructed and never switches per call.
type QueryOrchestrator struct {
	flow          domain.FlowMode
	chat          driven.ChatService
	retriever     *Retriever
	tools         *ToolRegistry
	conversations driven.ConversationStore
	documents     driven.DocumentStore
	queryLog      driven.QueryLog

	topK        int
	maxTokens   int
	temperature float64
}

// OrchestratorOption configures a QueryOrchestrator.
type OrchestratorOption func(*QueryOrchestrator)

// WithTopK overrides how many chunks the pre-retrieval flow fetches.
func WithTopK(k int) OrchestratorOption {
	return func(o *QueryOrchestrator) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) OrchestratorOption {
	return func(o *QueryOrchestrator) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithTemperature sets the completion temperature.
func WithTemperature(t float64) OrchestratorOption {
	return func(o *QueryOrchestrator) {
		if t > 0 {
			o.temperature = t
		}
	}
}

// NewQueryOrchestrator creates an orchestrator for the given flow.
// The tool-calling flow requires a non-empty tool registry; this is
// checked here, not at query time.
func NewQueryOrchestrator(
	flow domain.FlowMode,
	chat driven.ChatService,
	retriever *Retriever,
	tools *ToolRegistry,
	conversations driven.ConversationStore,
	documents driven.DocumentStore,
	queryLog driven.QueryLog,
	opts ...OrchestratorOption,
) (*QueryOrchestrator, error) {
	if !flow.Valid() {
		return nil, fmt.Errorf("unknown flow mode %q: %w", flow, domain.ErrInvalidInput)
	}
	if flow == domain.FlowToolCalling && (tools == nil || tools.Len() == 0) {
		return nil, fmt.Errorf("tool-calling flow needs a tool registry: %w", domain.ErrInvalidInput)
	}

	o := &QueryOrchestrator{
		flow:          flow,
		chat:          chat,
		retriever:     retriever,
		tools:         tools,
		conversations: conversations,
		documents:     documents,
		queryLog:      queryLog,
		topK:          DefaultTopK,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Query runs one question through the pipeline. sessionID may be empty,
// in which case no conversation history is kept.
func (o *QueryOrchestrator) Query(ctx context.Context, sessionID, question string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrInvalidInput
	}
	if o.chat == nil {
		return nil, domain.ErrChatUnavailable
	}

	if o.flow == domain.FlowPreRetrieval {
		return o.preRetrieval(ctx, sessionID, question)
	}
	return o.toolCalling(ctx, sessionID, question)
}

// preRetrieval searches first and hands the model the matching passages.
// Nothing above the similarity threshold means no completion is attempted.
func (o *QueryOrchestrator) preRetrieval(ctx context.Context, sessionID, question string) (*domain.Answer, error) {
	logger.Section("Query (pre-retrieval)")
	logger.Info("Question: %q", question)

	chunks, embedding, err := o.retriever.Retrieve(ctx, question, o.topK)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, domain.ErrNoRelevantContent
	}

	// The user message is committed before the completion and stays in
	// the conversation even if the completion fails.
	history, err := o.appendTurn(ctx, sessionID, domain.Message{
		Role:    domain.RoleUser,
		Content: question,
	}, nil)
	if err != nil {
		return nil, err
	}

	turns := make([]domain.ChatTurn, 0, len(history)+1)
	turns = append(turns, domain.ChatTurn{
		Role:    domain.RoleSystem,
		Content: contextSystemPrompt + "\n\n" + renderContext(chunks),
	})
	turns = append(turns, history...)

	result, err := o.chat.Complete(ctx, turns, driven.CompleteOptions{
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	})
	if err != nil {
		return nil, err
	}

	o.record(ctx, question, result.Text, embedding)
	if _, err := o.appendTurn(ctx, sessionID, domain.Message{
		Role:    domain.RoleAssistant,
		Content: result.Text,
	}, history); err != nil {
		return nil, err
	}

	return &domain.Answer{
		Text:    result.Text,
		Sources: sourcesFromChunks(chunks),
	}, nil
}

// toolCalling lets the model decide whether to search. At most one round
// of tool execution happens: the follow-up completion carries no tool
// definitions, so the model cannot ask again.
func (o *QueryOrchestrator) toolCalling(ctx context.Context, sessionID, question string) (*domain.Answer, error) {
	logger.Section("Query (tool-calling)")
	logger.Info("Question: %q", question)

	history, err := o.appendTurn(ctx, sessionID, domain.Message{
		Role:    domain.RoleUser,
		Content: question,
	}, nil)
	if err != nil {
		return nil, err
	}

	result, err := o.chat.Complete(ctx, withSystem(toolSystemPrompt, history), driven.CompleteOptions{
		Tools:          o.tools.Definitions(),
		ToolChoiceAuto: true,
		MaxTokens:      o.maxTokens,
		Temperature:    o.temperature,
	})
	if err != nil {
		return nil, err
	}

	// The model answered directly without consulting the knowledge base.
	if len(result.ToolCalls) == 0 {
		o.record(ctx, question, result.Text, nil)
		if _, err := o.appendTurn(ctx, sessionID, domain.Message{
			Role:    domain.RoleAssistant,
			Content: result.Text,
		}, history); err != nil {
			return nil, err
		}
		return &domain.Answer{Text: result.Text}, nil
	}

	logger.Debug("Model requested %d tool calls", len(result.ToolCalls))

	history, err = o.appendTurn(ctx, sessionID, domain.Message{
		Role:      domain.RoleAssistant,
		Content:   result.Text,
		ToolCalls: result.ToolCalls,
	}, history)
	if err != nil {
		return nil, err
	}

	var sources []domain.Source
	for _, call := range result.ToolCalls {
		payload, execErr := o.tools.Execute(ctx, call)
		if execErr != nil {
			// Tool failures are reported back to the model rather than
			// aborting the query.
			logger.Warn("Tool %s failed: %v", call.Name, execErr)
			payload = toolErrorPayload(execErr)
		} else if call.Name == SearchToolName {
			sources = append(sources, o.sourcesFromToolReply(ctx, payload)...)
		}

		history, err = o.appendTurn(ctx, sessionID, domain.Message{
			Role:       domain.RoleTool,
			Content:    payload,
			ToolCallID: call.ID,
		}, history)
		if err != nil {
			return nil, err
		}
	}

	final, err := o.chat.Complete(ctx, withSystem(toolSystemPrompt, history), driven.CompleteOptions{
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	})
	if err != nil {
		return nil, err
	}

	o.record(ctx, question, final.Text, nil)
	if _, err := o.appendTurn(ctx, sessionID, domain.Message{
		Role:    domain.RoleAssistant,
		Content: final.Text,
	}, history); err != nil {
		return nil, err
	}

	return &domain.Answer{
		Text:    final.Text,
		Sources: dedupSourcesByTitle(sources),
	}, nil
}

// appendTurn commits a message to the session's conversation and returns
// the updated history. With no session, history lives only for this call.
func (o *QueryOrchestrator) appendTurn(ctx context.Context, sessionID string, msg domain.Message, local []domain.ChatTurn) ([]domain.ChatTurn, error) {
	if sessionID == "" {
		return append(local, domain.ChatTurn{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
			ToolCalls:  msg.ToolCalls,
		}), nil
	}

	conv, err := o.conversations.Append(ctx, sessionID, msg)
	if err != nil {
		return nil, fmt.Errorf("appending to conversation: %w", err)
	}
	return conv.History(), nil
}

// record persists one query log entry. Log failures do not fail the query.
func (o *QueryOrchestrator) record(ctx context.Context, question, response string, embedding []float32) {
	if o.queryLog == nil {
		return
	}
	err := o.queryLog.Record(ctx, &domain.QueryRecord{
		ID:           uuid.NewString(),
		QueryText:    question,
		ResponseText: response,
		Embedding:    embedding,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		logger.Warn("Recording query: %v", err)
	}
}

// sourcesFromToolReply extracts document titles from a search tool reply
// and resolves them back to document ids. Titles that no longer resolve
// keep an empty id.
func (o *QueryOrchestrator) sourcesFromToolReply(ctx context.Context, payload string) []domain.Source {
	var reply struct {
		Results []struct {
			Title string `json:"title"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		logger.Warn("Unparseable tool reply: %v", err)
		return nil
	}

	sources := make([]domain.Source, 0, len(reply.Results))
	for _, result := range reply.Results {
		if result.Title == "" {
			continue
		}
		source := domain.Source{Title: result.Title}
		if doc, err := o.documents.GetDocumentByTitle(ctx, result.Title); err == nil {
			source.DocumentID = doc.ID
		}
		sources = append(sources, source)
	}
	return sources
}

// renderContext formats retrieved chunks into the prompt context block.
func renderContext(chunks []domain.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for _, chunk := range chunks {
		fmt.Fprintf(&b, "\nDocument: %s\nRelevance: %.2f%%\nContent:\n%s\n", chunk.DocumentTitle, roundPercent(chunk.Score), chunk.Chunk.Content)
	}
	return b.String()
}

// withSystem prefixes the history with a system turn.
func withSystem(prompt string, history []domain.ChatTurn) []domain.ChatTurn {
	turns := make([]domain.ChatTurn, 0, len(history)+1)
	turns = append(turns, domain.ChatTurn{Role: domain.RoleSystem, Content: prompt})
	return append(turns, history...)
}

// sourcesFromChunks projects chunks to sources, deduplicated by document
// id in retrieval order.
func sourcesFromChunks(chunks []domain.RetrievedChunk) []domain.Source {
	seen := make(map[string]struct{}, len(chunks))
	sources := make([]domain.Source, 0, len(chunks))
	for _, chunk := range chunks {
		docID := chunk.Chunk.DocumentID
		if _, dup := seen[docID]; dup {
			continue
		}
		seen[docID] = struct{}{}
		sources = append(sources, domain.Source{
			DocumentID: docID,
			Title:      chunk.DocumentTitle,
		})
	}
	return sources
}

// dedupSourcesByTitle keeps the first source per title, preserving order.
func dedupSourcesByTitle(sources []domain.Source) []domain.Source {
	seen := make(map[string]struct{}, len(sources))
	out := make([]domain.Source, 0, len(sources))
	for _, source := range sources {
		if _, dup := seen[source.Title]; dup {
			continue
		}
		seen[source.Title] = struct{}{}
		out = append(out, source)
	}
	return out
}

// toolErrorPayload encodes a tool failure as a JSON result the model can
// read.
func toolErrorPayload(err error) string {
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(payload)
}
