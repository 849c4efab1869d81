// Package anthropic provides a chat service adapter using the Anthropic API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/askbase/internal/core/domain"
	"github.com/custodia-labs/askbase/internal/core/ports/driven"
)

// Ensure ChatService implements the interface.
var _ driven.ChatService = (*ChatService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-sonnet-latest"
	DefaultTimeout = 30 * time.Second

	// DefaultMaxTokens applies when the caller sets none; the API
	// requires an explicit value.
	DefaultMaxTokens = 1024

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic chat service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the chat model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// ChatService produces completions using the Anthropic messages API.
type ChatService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string         `json:"model"`
	Messages    []wireMessage  `json:"messages"`
	MaxTokens   int            `json:"max_tokens"`
	System      string         `json:"system,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
	Tools       []toolSpec     `json:"tools,omitempty"`
	ToolChoice  map[string]any `json:"tool_choice,omitempty"`
}

// wireMessage is the Anthropic message format. Content is a list of
// typed blocks.
type wireMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

// contentBlock is one typed block within a message.
type contentBlock struct {
	Type string `json:"type"`

	// Text payload, for type "text".
	Text string `json:"text,omitempty"`

	// Tool use payload, for type "tool_use".
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// Tool result payload, for type "tool_result".
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// toolSpec is the Anthropic tool definition format.
type toolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewChatService creates a new Anthropic chat service.
func NewChatService(cfg Config) (*ChatService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &ChatService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Complete sends the message sequence and returns either a text reply or
// the tool invocations the model requested.
func (s *ChatService) Complete(ctx context.Context, messages []domain.ChatTurn, opts driven.CompleteOptions) (*driven.ChatResult, error) {
	system, wireMessages := toWireMessages(messages)

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	reqBody := messagesRequest{
		Model:     s.model,
		Messages:  wireMessages,
		MaxTokens: maxTokens,
		System:    system,
	}
	if opts.Temperature > 0 {
		reqBody.Temperature = opts.Temperature
	}
	if len(opts.Tools) > 0 {
		reqBody.Tools = make([]toolSpec, len(opts.Tools))
		for i, tool := range opts.Tools {
			reqBody.Tools[i] = toolSpec{
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: tool.Parameters,
			}
		}
		if opts.ToolChoiceAuto {
			reqBody.ToolChoice = map[string]any{"type": "auto"}
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/v1/messages",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &domain.ChatError{Provider: "anthropic", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ChatError{Provider: "anthropic", Err: fmt.Errorf("read response: %w", err)}
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return nil, &domain.ChatError{Provider: "anthropic", Err: fmt.Errorf("decode response: %w", err)}
	}

	if msgResp.Error != nil {
		return nil, &domain.ChatError{Provider: "anthropic", Err: fmt.Errorf("%s: %s", msgResp.Error.Type, msgResp.Error.Message)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ChatError{Provider: "anthropic", Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}

	result := &driven.ChatResult{}
	for _, block := range msgResp.Content {
		switch block.Type {
		case "text":
			result.Text += block.Text
		case "tool_use":
			result.ToolCalls = append(result.ToolCalls, domain.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}
	return result, nil
}

// toWireMessages converts domain turns to the Anthropic block format.
// System turns become the top-level system prompt; tool results become
// tool_result blocks inside a user message.
func toWireMessages(messages []domain.ChatTurn) (string, []wireMessage) {
	var system string
	out := make([]wireMessage, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content

		case domain.RoleTool:
			out = append(out, wireMessage{
				Role: domain.RoleUser,
				Content: []contentBlock{{
					Type:      "tool_result",
					ToolUseID: msg.ToolCallID,
					Content:   msg.Content,
				}},
			})

		case domain.RoleAssistant:
			blocks := []contentBlock{}
			if msg.Content != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, contentBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Name,
					Input: call.Arguments,
				})
			}
			out = append(out, wireMessage{Role: domain.RoleAssistant, Content: blocks})

		default:
			out = append(out, wireMessage{
				Role:    msg.Role,
				Content: []contentBlock{{Type: "text", Text: msg.Content}},
			})
		}
	}
	return system, out
}

// ModelName returns the name of the chat model being used.
func (s *ChatService) ModelName() string {
	return s.model
}

// Ping validates the API key with a minimal request. Anthropic has no
// free list endpoint, so a one-token completion is used.
func (s *ChatService) Ping(ctx context.Context) error {
	_, err := s.Complete(ctx, []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "ping"},
	}, driven.CompleteOptions{MaxTokens: 1})
	if err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *ChatService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
