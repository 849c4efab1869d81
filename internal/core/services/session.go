package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/askbase/internal/core/ports/driven"
	"github.com/custodia-labs/askbase/internal/core/ports/driving"
	"github.com/custodia-labs/askbase/internal/logger"
)

// Ensure SessionRegistry implements the interface.
var _ driving.SessionService = (*SessionRegistry)(nil)

// Default sweep timings.
const (
	// DefaultSweepInterval is how often dead conversations are reaped.
	DefaultSweepInterval = 15 * time.Second

	// DefaultReconcileInterval is the cadence of the slower full sweep
	// that catches conversations missed by the fast one.
	DefaultReconcileInterval = 30 * time.Minute

	// DefaultMaxIdle is how long a session may stay silent before it is
	// expired.
	DefaultMaxIdle = 30 * time.Minute
)

// SessionRegistry tracks live session ids and reaps conversations that
// belong to dead or idle sessions.
type SessionRegistry struct {
	conversations     driven.ConversationStore
	sweepInterval     time.Duration
	reconcileInterval time.Duration
	maxIdle           time.Duration

	mu       sync.Mutex
	lastSeen map[string]time.Time
	running  bool
	stopCh   chan struct{}
	done     chan struct{}

	// now is swappable for tests.
	now func() time.Time
}

// RegistryOption configures a SessionRegistry.
type RegistryOption func(*SessionRegistry)

// WithSweepInterval overrides the reap cadence.
func WithSweepInterval(d time.Duration) RegistryOption {
	return func(r *SessionRegistry) {
		if d > 0 {
			r.sweepInterval = d
		}
	}
}

// WithReconcileInterval overrides the slow sweep cadence.
func WithReconcileInterval(d time.Duration) RegistryOption {
	return func(r *SessionRegistry) {
		if d > 0 {
			r.reconcileInterval = d
		}
	}
}

// WithMaxIdle overrides the idle expiry.
func WithMaxIdle(d time.Duration) RegistryOption {
	return func(r *SessionRegistry) {
		if d > 0 {
			r.maxIdle = d
		}
	}
}

// NewSessionRegistry creates a session registry.
func NewSessionRegistry(conversations driven.ConversationStore, opts ...RegistryOption) *SessionRegistry {
	r := &SessionRegistry{
		conversations:     conversations,
		sweepInterval:     DefaultSweepInterval,
		reconcileInterval: DefaultReconcileInterval,
		maxIdle:           DefaultMaxIdle,
		lastSeen:          make(map[string]time.Time),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register marks a session id as active.
func (r *SessionRegistry) Register(id string) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSeen[id] = r.now()
	logger.Debug("Session %s registered", id)
}

// Touch refreshes a session's idle clock. Called on every query.
func (r *SessionRegistry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lastSeen[id]; ok {
		r.lastSeen[id] = r.now()
	}
}

// Unregister marks a session id as inactive and triggers an immediate
// cleanup sweep.
func (r *SessionRegistry) Unregister(id string) {
	r.mu.Lock()
	delete(r.lastSeen, id)
	r.mu.Unlock()

	logger.Debug("Session %s unregistered", id)
	r.sweep(context.Background())
}

// ActiveIDs returns a snapshot of the active session ids.
func (r *SessionRegistry) ActiveIDs() map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]struct{}, len(r.lastSeen))
	for id := range r.lastSeen {
		out[id] = struct{}{}
	}
	return out
}

// Start begins the periodic sweep loop. This method blocks until Stop is
// called or ctx is cancelled.
func (r *SessionRegistry) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil // Already running
	}
	r.running = true
	stopCh := make(chan struct{})
	done := make(chan struct{})
	r.stopCh = stopCh
	r.done = done
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.stopCh = nil
		r.done = nil
		r.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	// The slow sweep catches anything a missed unregister left behind.
	reconcile := time.NewTicker(r.reconcileInterval)
	defer reconcile.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			r.expireIdle()
			r.sweep(ctx)
		case <-reconcile.C:
			r.sweep(ctx)
		}
	}
}

// Stop shuts down the sweep loop and returns once it has exited.
func (r *SessionRegistry) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	if r.stopCh != nil {
		close(r.stopCh)
		r.stopCh = nil
	}
	done := r.done
	r.mu.Unlock()

	if done != nil {
		<-done
	}
	return nil
}

// expireIdle unregisters sessions that have been silent past maxIdle.
func (r *SessionRegistry) expireIdle() {
	cutoff := r.now().Add(-r.maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, seen := range r.lastSeen {
		if seen.Before(cutoff) {
			delete(r.lastSeen, id)
			logger.Debug("Session %s expired after %s idle", id, r.maxIdle)
		}
	}
}

// sweep deletes conversations whose session is no longer active.
func (r *SessionRegistry) sweep(ctx context.Context) {
	deleted, err := r.conversations.DeleteWhereSessionNotIn(ctx, r.ActiveIDs())
	if err != nil {
		logger.Warn("Conversation sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		logger.Debug("Swept %d dead conversations", deleted)
	}
}
