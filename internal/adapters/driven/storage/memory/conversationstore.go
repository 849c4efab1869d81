package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/askbase/internal/core/domain"
	"github.com/custodia-labs/askbase/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore is an in-memory implementation of
// driven.ConversationStore. Conversations are session-scoped and die with
// their session, so nothing here needs to survive a restart.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation

	// now is swappable for tests.
	now func() time.Time
}

// NewConversationStore creates a new in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*domain.Conversation),
		now:           time.Now,
	}
}

// GetOrCreate returns the session's conversation, creating it if absent,
// and touches LastActivity.
func (s *ConversationStore) GetOrCreate(_ context.Context, sessionID string) (*domain.Conversation, error) {
	if sessionID == "" {
		return nil, domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		conv = &domain.Conversation{SessionID: sessionID}
		s.conversations[sessionID] = conv
	}
	conv.LastActivity = s.now()
	return snapshot(conv), nil
}

// Append adds one message and returns the updated conversation.
func (s *ConversationStore) Append(_ context.Context, sessionID string, msg domain.Message) (*domain.Conversation, error) {
	if sessionID == "" {
		return nil, domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		conv = &domain.Conversation{SessionID: sessionID}
		s.conversations[sessionID] = conv
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	conv.Messages = append(conv.Messages, msg)
	conv.LastActivity = s.now()
	return snapshot(conv), nil
}

// Clear empties the session's message list.
func (s *ConversationStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		return nil
	}
	conv.Messages = nil
	conv.LastActivity = s.now()
	return nil
}

// DeleteWhereSessionNotIn removes conversations for dead sessions.
func (s *ConversationStore) DeleteWhereSessionNotIn(_ context.Context, active map[string]struct{}) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id := range s.conversations {
		if _, alive := active[id]; !alive {
			delete(s.conversations, id)
			deleted++
		}
	}
	return deleted, nil
}

// snapshot copies a conversation so callers never alias internal state.
func snapshot(conv *domain.Conversation) *domain.Conversation {
	out := &domain.Conversation{
		SessionID:    conv.SessionID,
		LastActivity: conv.LastActivity,
	}
	if len(conv.Messages) > 0 {
		out.Messages = make([]domain.Message, len(conv.Messages))
		copy(out.Messages, conv.Messages)
	}
	return out
}
