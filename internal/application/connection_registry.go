package application

import (
	"context"
	"sync"
	"time"

	"archie-core-attribution-layer/internal/domain"
	"archie-core-attribution-layer/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultManagerIdleTTL is how long a user's manager survives without requests
const DefaultManagerIdleTTL = 30 * time.Minute

type registryEntry struct {
	manager  *ConnectionManager
	lastUsed time.Time
}

// ConnectionRegistry keeps one ConnectionManager per authenticated user so
// that no user's snapshot is ever visible to another request. Managers idle
// for longer than the idle TTL are dropped and reloaded on the next request.
type ConnectionRegistry struct {
	repo    ports.ConnectionRepository
	logger  zerolog.Logger
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	entries   map[string]*registryEntry
	lastSweep time.Time
}

// NewConnectionRegistry creates an empty registry
func NewConnectionRegistry(repo ports.ConnectionRepository, logger zerolog.Logger) *ConnectionRegistry {
	return &ConnectionRegistry{
		repo:    repo,
		logger:  logger,
		idleTTL: DefaultManagerIdleTTL,
		now:     time.Now,
		entries: make(map[string]*registryEntry),
	}
}

// For returns the manager of userID, loading its connections on first use
func (r *ConnectionRegistry) For(ctx context.Context, userID string) (*ConnectionManager, error) {
	if userID == "" {
		return nil, domain.NewError(domain.KindUnauthenticated, "connection manager", nil)
	}

	r.mu.Lock()
	now := r.now()
	r.evictIdle(now)
	e, ok := r.entries[userID]
	if !ok {
		e = &registryEntry{manager: NewConnectionManager(r.repo, r.logger.With().Str("userId", userID).Logger())}
		r.entries[userID] = e
	}
	e.lastUsed = now
	r.mu.Unlock()

	if ok {
		return e.manager, nil
	}
	if err := e.manager.SetCurrentUser(ctx, userID); err != nil {
		r.mu.Lock()
		if r.entries[userID] == e {
			delete(r.entries, userID)
		}
		r.mu.Unlock()
		return nil, err
	}
	return e.manager, nil
}

// evictIdle drops managers unused for longer than idleTTL. It sweeps at most
// once per idleTTL/2. Callers hold r.mu.
func (r *ConnectionRegistry) evictIdle(now time.Time) {
	if now.Sub(r.lastSweep) < r.idleTTL/2 {
		return
	}
	r.lastSweep = now

	evicted := 0
	for userID, e := range r.entries {
		if now.Sub(e.lastUsed) > r.idleTTL {
			delete(r.entries, userID)
			evicted++
		}
	}
	if evicted > 0 {
		r.logger.Debug().Int("evicted", evicted).Int("remaining", len(r.entries)).Msg("Evicted idle connection managers")
	}
}

// Len returns the number of cached managers
func (r *ConnectionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Forget clears and drops the manager of userID, e.g. on logout
func (r *ConnectionRegistry) Forget(ctx context.Context, userID string) {
	r.mu.Lock()
	e, ok := r.entries[userID]
	delete(r.entries, userID)
	r.mu.Unlock()

	if ok {
		_ = e.manager.SetCurrentUser(ctx, "")
		r.logger.Info().Str("userId", userID).Msg("Cleared connection state")
	}
}
