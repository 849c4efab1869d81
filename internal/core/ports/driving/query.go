package driving

import (
	"context"

	"github.com/custodia-labs/askbase/internal/core/domain"
)

// QueryService answers natural-language questions against the knowledge
// base. The flow (pre-retrieval or tool-calling) is fixed when the
// implementation is constructed.
type QueryService interface {
	// Query runs one question through the pipeline. sessionID may be
	// empty, in which case no conversation history is kept.
	Query(ctx context.Context, sessionID, question string) (*domain.Answer, error)
}
