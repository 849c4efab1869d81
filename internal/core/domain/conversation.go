package domain

import (
	"encoding/json"
	"time"
)

// Message roles within a conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"
)

// Message is a single turn within a conversation.
type Message struct {
	// Role is one of RoleUser, RoleAssistant, RoleTool or RoleSystem.
	Role string

	// Content is the message text. For tool messages this is the tool
	// result payload.
	Content string

	// ToolCallID links a tool message to the invocation that produced it.
	ToolCallID string

	// ToolCalls lists the invocations an assistant message requested.
	ToolCalls []ToolCall

	// Timestamp is when the message was appended.
	Timestamp time.Time
}

// ToolCall is a structured request from the model to invoke a named tool.
type ToolCall struct {
	// ID keys the eventual tool-result message back to this invocation.
	ID string

	// Name is the registered tool name.
	Name string

	// Arguments is the raw JSON argument object.
	Arguments json.RawMessage
}

// Conversation holds the ordered message history for one session.
// Exactly one conversation exists per session id at any time; the message
// list is append-only until the conversation is cleared or deleted.
type Conversation struct {
	// SessionID is the unique session key.
	SessionID string

	// Messages is the ordered turn sequence.
	Messages []Message

	// LastActivity is touched on every read or append.
	LastActivity time.Time
}

// ChatTurn is the provider-facing projection of a message. Tool metadata
// is carried through so adapters can reconstruct the wire format their
// provider expects.
type ChatTurn struct {
	Role       string
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

// History projects the conversation into provider-facing turns,
// preserving order.
func (c *Conversation) History() []ChatTurn {
	turns := make([]ChatTurn, len(c.Messages))
	for i, m := range c.Messages {
		turns[i] = ChatTurn{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			ToolCalls:  m.ToolCalls,
		}
	}
	return turns
}
