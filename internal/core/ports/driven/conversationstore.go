package driven

import (
	"context"

	"github.com/custodia-labs/askbase/internal/core/domain"
)

// ConversationStore holds per-session message history.
//
// A single-writer-at-a-time discipline per session id is sufficient; no
// cross-session coordination is required.
type ConversationStore interface {
	// GetOrCreate returns the session's conversation, creating an empty
	// one if absent. Either way LastActivity is touched.
	GetOrCreate(ctx context.Context, sessionID string) (*domain.Conversation, error)

	// Append adds one message to the session's conversation and returns
	// the updated conversation.
	Append(ctx context.Context, sessionID string, msg domain.Message) (*domain.Conversation, error)

	// Clear empties the session's message list without deleting the
	// conversation.
	Clear(ctx context.Context, sessionID string) error

	// DeleteWhereSessionNotIn removes conversations whose session id is
	// absent from active and returns how many were deleted.
	DeleteWhereSessionNotIn(ctx context.Context, active map[string]struct{}) (int, error)
}
