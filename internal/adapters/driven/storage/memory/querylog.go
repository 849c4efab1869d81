package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/askbase/internal/core/domain"
	"github.com/custodia-labs/askbase/internal/core/ports/driven"
)

// Ensure QueryLog implements the interface.
var _ driven.QueryLog = (*QueryLog)(nil)

// QueryLog is an in-memory append-only log of processed queries.
type QueryLog struct {
	mu      sync.RWMutex
	records []domain.QueryRecord
}

// NewQueryLog creates a new in-memory query log.
func NewQueryLog() *QueryLog {
	return &QueryLog{}
}

// Record appends one query record.
func (l *QueryLog) Record(_ context.Context, rec *domain.QueryRecord) error {
	if rec == nil {
		return domain.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cp := *rec
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	l.records = append(l.records, cp)
	return nil
}

// List returns records in insertion order.
func (l *QueryLog) List(_ context.Context) ([]domain.QueryRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.QueryRecord, len(l.records))
	copy(out, l.records)
	return out, nil
}
