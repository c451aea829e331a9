package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"archie-core-attribution-layer/internal/domain"
	"archie-core-attribution-layer/internal/infrastructure/metrics"
	"archie-core-attribution-layer/internal/ports"

	"github.com/rs/zerolog"
)

// connectionSnapshot is an immutable view of one user's authoritative connections
type connectionSnapshot struct {
	userID     string
	byPlatform map[domain.Platform]domain.PlatformConnection
}

// ConnectionManager owns the connected platforms of the current user.
// Readers see a snapshot that is replaced whole on every reload.
type ConnectionManager struct {
	repo   ports.ConnectionRepository
	logger zerolog.Logger

	mu         sync.Mutex
	userID     string
	generation uint64
	applied    uint64
	snapshot   atomic.Pointer[connectionSnapshot]
}

// NewConnectionManager creates a connection manager with no current user
func NewConnectionManager(repo ports.ConnectionRepository, logger zerolog.Logger) *ConnectionManager {
	m := &ConnectionManager{
		repo:   repo,
		logger: logger,
	}
	m.snapshot.Store(&connectionSnapshot{byPlatform: map[domain.Platform]domain.PlatformConnection{}})
	return m
}

// CurrentUser returns the authenticated user the snapshot belongs to
func (m *ConnectionManager) CurrentUser() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// SetCurrentUser switches the authenticated identity. The previous user's
// connections are dropped before anything else happens.
func (m *ConnectionManager) SetCurrentUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	m.userID = userID
	m.generation++
	m.applied = m.generation
	m.snapshot.Store(&connectionSnapshot{userID: userID, byPlatform: map[domain.Platform]domain.PlatformConnection{}})
	m.mu.Unlock()

	if userID == "" {
		return nil
	}
	return m.Refresh(ctx)
}

// Refresh reloads every connection of the current user and swaps the snapshot.
// A load never overwrites the result of a load that started after it.
func (m *ConnectionManager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	userID := m.userID
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	if userID == "" {
		m.logger.Warn().Msg("Refresh attempted without an authenticated user")
		return domain.NewError(domain.KindUnauthenticated, "refresh connections", nil)
	}

	rows, err := m.repo.ListByUser(ctx, userID)
	if err != nil {
		m.logger.Error().Err(err).Str("userId", userID).Msg("Failed to load platform connections")
		return domain.NewError(domain.KindStoreReadFailed, "refresh connections", err)
	}
	snap := m.buildSnapshot(userID, rows)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userID != userID || gen <= m.applied {
		m.logger.Debug().Str("userId", userID).Uint64("generation", gen).Msg("Discarding stale connection load")
		return nil
	}
	m.applied = gen
	m.snapshot.Store(snap)
	return nil
}

// buildSnapshot keeps the most recent active row per platform
func (m *ConnectionManager) buildSnapshot(userID string, rows []domain.PlatformConnection) *connectionSnapshot {
	byPlatform := make(map[domain.Platform]domain.PlatformConnection)
	for _, row := range rows {
		if row.Status != domain.ConnectionActive {
			continue
		}
		current, exists := byPlatform[row.PlatformName]
		if !exists {
			byPlatform[row.PlatformName] = row
			continue
		}

		m.logger.Warn().
			Str("userId", userID).
			Str("platform", string(row.PlatformName)).
			Str("keptId", newer(current, row).ID).
			Str("ignoredId", older(current, row).ID).
			Msg("Multiple active connections for platform, keeping the most recent")
		byPlatform[row.PlatformName] = newer(current, row)
	}
	return &connectionSnapshot{userID: userID, byPlatform: byPlatform}
}

func newer(a, b domain.PlatformConnection) domain.PlatformConnection {
	if b.CreatedAt.After(a.CreatedAt) {
		return b
	}
	return a
}

func older(a, b domain.PlatformConnection) domain.PlatformConnection {
	if b.CreatedAt.After(a.CreatedAt) {
		return a
	}
	return b
}

// Connect stores a new active connection and reloads the snapshot when userID
// is the current user. Older active rows for the same platform are revoked.
func (m *ConnectionManager) Connect(ctx context.Context, userID string, platform domain.Platform, credentials domain.Credentials) error {
	err := m.connect(ctx, userID, platform, credentials)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ConnectionsTotal.WithLabelValues(string(platform), result).Inc()
	return err
}

func (m *ConnectionManager) connect(ctx context.Context, userID string, platform domain.Platform, credentials domain.Credentials) error {
	if userID == "" {
		m.logger.Warn().Str("platform", string(platform)).Msg("Connect attempted without an authenticated user")
		return domain.NewError(domain.KindUnauthenticated, "connect", nil)
	}
	if _, err := domain.ParsePlatform(string(platform)); err != nil {
		m.logger.Warn().Err(err).Str("userId", userID).Msg("Rejected connection for unknown platform")
		return err
	}
	if err := credentials.Validate(); err != nil {
		m.logger.Warn().Err(err).Str("userId", userID).Str("platform", string(platform)).Msg("Rejected malformed credentials")
		return err
	}

	created, err := m.repo.Insert(ctx, &domain.PlatformConnection{
		UserID:       userID,
		PlatformName: platform,
		Credentials:  credentials,
		Status:       domain.ConnectionActive,
	})
	if err != nil {
		m.logger.Error().Err(err).Str("userId", userID).Str("platform", string(platform)).Msg("Failed to insert platform connection")
		return domain.NewError(domain.KindStoreWriteFailed, "connect", err)
	}

	m.logger.Info().
		Str("userId", userID).
		Str("platform", string(platform)).
		Str("connectionId", created.ID).
		Msg("Platform connected")

	m.revokeOlder(ctx, created)

	if userID != m.CurrentUser() {
		return nil
	}
	return m.Refresh(ctx)
}

// revokeOlder enforces one active row per (user, platform). Failures leave
// duplicates that readers disambiguate by recency.
func (m *ConnectionManager) revokeOlder(ctx context.Context, keep *domain.PlatformConnection) {
	active, err := m.repo.ListActive(ctx, keep.UserID, keep.PlatformName)
	if err != nil {
		m.logger.Warn().Err(err).Str("userId", keep.UserID).Str("platform", string(keep.PlatformName)).Msg("Failed to list previous connections")
		return
	}
	for _, conn := range active {
		if conn.ID == keep.ID {
			continue
		}
		if err := m.repo.Revoke(ctx, conn.ID); err != nil && !errors.Is(err, ports.ErrNotFound) {
			m.logger.Warn().Err(err).Str("connectionId", conn.ID).Msg("Failed to revoke superseded connection")
		}
	}
}

// Disconnect revokes every active connection of the current user for platform
func (m *ConnectionManager) Disconnect(ctx context.Context, platform domain.Platform) error {
	err := m.disconnect(ctx, platform)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ConnectionsTotal.WithLabelValues(string(platform), "disconnect_"+result).Inc()
	return err
}

func (m *ConnectionManager) disconnect(ctx context.Context, platform domain.Platform) error {
	userID := m.CurrentUser()
	if userID == "" {
		m.logger.Warn().Str("platform", string(platform)).Msg("Disconnect attempted without an authenticated user")
		return domain.NewError(domain.KindUnauthenticated, "disconnect", nil)
	}

	active, err := m.repo.ListActive(ctx, userID, platform)
	if err != nil {
		m.logger.Error().Err(err).Str("userId", userID).Str("platform", string(platform)).Msg("Failed to load platform connections")
		return domain.NewError(domain.KindStoreReadFailed, "disconnect", err)
	}
	for _, conn := range active {
		if err := m.repo.Revoke(ctx, conn.ID); err != nil && !errors.Is(err, ports.ErrNotFound) {
			m.logger.Error().Err(err).Str("connectionId", conn.ID).Msg("Failed to revoke platform connection")
			return domain.NewError(domain.KindStoreWriteFailed, "disconnect", err)
		}
	}

	m.logger.Info().
		Str("userId", userID).
		Str("platform", string(platform)).
		Int("revoked", len(active)).
		Msg("Platform disconnected")

	return m.Refresh(ctx)
}

// IsConnected reports whether the snapshot holds an active connection for platform. No I/O.
func (m *ConnectionManager) IsConnected(platform domain.Platform) bool {
	_, ok := m.snapshot.Load().byPlatform[platform]
	return ok
}

// Connection returns the authoritative connection for platform
func (m *ConnectionManager) Connection(platform domain.Platform) (domain.PlatformConnection, bool) {
	conn, ok := m.snapshot.Load().byPlatform[platform]
	return conn, ok
}

// Connections returns the authoritative connection of every connected platform in display order
func (m *ConnectionManager) Connections() []domain.PlatformConnection {
	snap := m.snapshot.Load()
	out := make([]domain.PlatformConnection, 0, len(snap.byPlatform))
	for _, conn := range snap.byPlatform {
		out = append(out, conn)
	}
	sort.Slice(out, func(i, j int) bool {
		return platformRank(out[i].PlatformName) < platformRank(out[j].PlatformName)
	})
	return out
}

// ConnectedPlatforms returns the connected platforms in display order
func (m *ConnectionManager) ConnectedPlatforms() []domain.Platform {
	conns := m.Connections()
	out := make([]domain.Platform, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.PlatformName)
	}
	return out
}

func platformRank(p domain.Platform) int {
	for i, known := range domain.Platforms {
		if known == p {
			return i
		}
	}
	return len(domain.Platforms)
}
