package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/custodia-labs/askbase/internal/core/domain"
	"github.com/custodia-labs/askbase/internal/core/ports/driven"
	"github.com/custodia-labs/askbase/internal/logger"
)

// Tool is one callable capability exposed to the model.
type Tool interface {
	// Definition returns the schema handed to the model.
	Definition() driven.ToolDefinition

	// Execute runs the tool with raw JSON arguments and returns a JSON
	// result payload.
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// ToolRegistry holds the tools a query flow may dispatch to. It is an
// explicit value handed to the orchestrator, and its contents are
// validated once at construction.
type ToolRegistry struct {
	order []string
	tools map[string]Tool
}

// NewToolRegistry creates a registry from the given tools. Registration
// order is preserved in Definitions. Duplicate or unnamed tools are
// rejected up front.
func NewToolRegistry(tools ...Tool) (*ToolRegistry, error) {
	r := &ToolRegistry{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		def := tool.Definition()
		if def.Name == "" {
			return nil, fmt.Errorf("tool with empty name: %w", domain.ErrInvalidInput)
		}
		if _, exists := r.tools[def.Name]; exists {
			return nil, fmt.Errorf("duplicate tool %q: %w", def.Name, domain.ErrInvalidInput)
		}
		r.tools[def.Name] = tool
		r.order = append(r.order, def.Name)
	}
	return r, nil
}

// Definitions returns the tool schemas in registration order.
func (r *ToolRegistry) Definitions() []driven.ToolDefinition {
	defs := make([]driven.ToolDefinition, len(r.order))
	for i, name := range r.order {
		defs[i] = r.tools[name].Definition()
	}
	return defs
}

// Execute dispatches one tool call by name.
func (r *ToolRegistry) Execute(ctx context.Context, call domain.ToolCall) (string, error) {
	tool, ok := r.tools[call.Name]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownTool, call.Name)
	}
	return tool.Execute(ctx, call.Arguments)
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	return len(r.order)
}

// ==================== Search tool ====================

// SearchToolName is the registered name of the knowledge base search tool.
const SearchToolName = "search_knowledge_base"

// Bounds for the tool's num_results argument.
const (
	minToolResults = 1
	maxToolResults = 20
)

// Ensure SearchTool implements the interface.
var _ Tool = (*SearchTool)(nil)

// SearchTool lets the model query the knowledge base on demand.
type SearchTool struct {
	retriever *Retriever
}

// NewSearchTool creates the knowledge base search tool.
func NewSearchTool(retriever *Retriever) *SearchTool {
	return &SearchTool{retriever: retriever}
}

// searchArgs is the model-supplied argument payload.
type searchArgs struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results"`
}

// searchResult is one entry in the tool's JSON reply.
type searchResult struct {
	Title            string  `json:"title"`
	Content          string  `json:"content"`
	RelevancePercent float64 `json:"relevance_percent"`
}

// searchReply is the tool's JSON reply envelope.
type searchReply struct {
	Results []searchResult `json:"results"`
}

// Definition returns the schema handed to the model.
func (t *SearchTool) Definition() driven.ToolDefinition {
	return driven.ToolDefinition{
		Name:        SearchToolName,
		Description: "Search the knowledge base for passages relevant to a query. Returns matching passages with their document titles and relevance scores.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
				"num_results": map[string]any{
					"type":        "integer",
					"description": "How many passages to return (1-20, default 5)",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Execute runs one search. num_results is clamped to [1, 20]; an empty
// result set is a valid reply, not an error.
func (t *SearchTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var parsed searchArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return "", fmt.Errorf("parsing arguments: %w", err)
	}
	if parsed.Query == "" {
		return "", fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}

	k := parsed.NumResults
	if k == 0 {
		k = DefaultTopK
	}
	if k < minToolResults {
		k = minToolResults
	}
	if k > maxToolResults {
		k = maxToolResults
	}

	logger.Debug("Tool search: %q (k=%d)", parsed.Query, k)

	chunks, _, err := t.retriever.Retrieve(ctx, parsed.Query, k)
	if err != nil {
		return "", err
	}

	reply := searchReply{Results: make([]searchResult, len(chunks))}
	for i, chunk := range chunks {
		reply.Results[i] = searchResult{
			Title:            chunk.DocumentTitle,
			Content:          chunk.Chunk.Content,
			RelevancePercent: roundPercent(chunk.Score),
		}
	}

	out, err := json.Marshal(reply)
	if err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}
	return string(out), nil
}

// roundPercent converts a similarity score to a percentage with two
// decimal places.
func roundPercent(score float64) float64 {
	return math.Round(score*100*100) / 100
}
