package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestMetricValid(t *testing.T) {
	valid := []Metric{MetricCosine, MetricL2, MetricInnerProduct}
	for _, m := range valid {
		if !m.Valid() {
			t.Errorf("Metric(%q).Valid() = false, want true", m)
		}
	}
	for _, m := range []Metric{"", "hamming", "Cosine"} {
		if m.Valid() {
			t.Errorf("Metric(%q).Valid() = true, want false", m)
		}
	}
}

func TestFlowModeValid(t *testing.T) {
	if !FlowPreRetrieval.Valid() || !FlowToolCalling.Valid() {
		t.Error("built-in flows should be valid")
	}
	if FlowMode("streaming").Valid() {
		t.Error("unknown flow should be invalid")
	}
}

func TestProviderErrorsUnwrap(t *testing.T) {
	cause := errors.New("connection refused")

	var err error = &EmbeddingError{Provider: "ollama", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("EmbeddingError should unwrap to its cause")
	}
	if got := err.Error(); got != "embedding provider ollama: connection refused" {
		t.Errorf("unexpected message %q", got)
	}

	err = &ChatError{Provider: "openai", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("ChatError should unwrap to its cause")
	}

	// Wrapped sentinels survive a further fmt.Errorf layer.
	wrapped := fmt.Errorf("query failed: %w", ErrNoRelevantContent)
	if !errors.Is(wrapped, ErrNoRelevantContent) {
		t.Error("sentinel should survive wrapping")
	}
}

func TestConversationHistoryProjection(t *testing.T) {
	conv := &Conversation{SessionID: "s"}
	conv.Messages = append(conv.Messages,
		Message{Role: RoleUser, Content: "hi"},
		Message{Role: RoleAssistant, Content: "hello"},
	)

	turns := conv.History()
	if len(turns) != 2 {
		t.Fatalf("History() returned %d turns, want 2", len(turns))
	}
	if turns[0].Role != RoleUser || turns[0].Content != "hi" {
		t.Errorf("unexpected first turn %+v", turns[0])
	}
	if turns[1].Role != RoleAssistant || turns[1].Content != "hello" {
		t.Errorf("unexpected second turn %+v", turns[1])
	}
}
