package driven

import (
	"context"

	"github.com/custodia-labs/askbase/internal/core/domain"
)

// ChatService produces completions from a language model.
//
// Implementations may include:
//   - OpenAI (chat completions with tools + tool_choice auto)
//   - Ollama (local models via /api/chat)
//   - Anthropic (messages API with tool_use blocks)
type ChatService interface {
	// Complete sends the ordered message sequence and returns either a
	// text reply or a set of tool invocations the model wants executed.
	// Tool definitions are only attached when opts carries them.
	Complete(ctx context.Context, messages []domain.ChatTurn, opts CompleteOptions) (*ChatResult, error)

	// ModelName returns the name of the chat model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompleteOptions configures one completion request.
type CompleteOptions struct {
	// Tools lists the tool schemas the model may call. Empty means plain
	// completion.
	Tools []ToolDefinition

	// ToolChoiceAuto lets the model decide whether to call a tool.
	// Only meaningful when Tools is non-empty.
	ToolChoiceAuto bool

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}

// ChatResult is the outcome of one completion: either Text, or one or
// more ToolCalls the caller must execute and report back.
type ChatResult struct {
	// Text is the model's reply. Empty when the model requested tools.
	Text string

	// ToolCalls lists requested tool invocations, in model order.
	ToolCalls []domain.ToolCall
}

// ToolDefinition is a JSON-schema-like tool description handed to the
// model so it knows what it may call.
type ToolDefinition struct {
	// Name is the tool's registered name.
	Name string `json:"name"`

	// Description tells the model when to use the tool.
	Description string `json:"description"`

	// Parameters is a JSON-schema object describing the arguments.
	Parameters map[string]any `json:"parameters"`
}
