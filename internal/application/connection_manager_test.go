package application

import (
	"context"
	"testing"
	"time"

	"archie-core-attribution-layer/internal/domain"
	"archie-core-attribution-layer/internal/infrastructure/repository"
	"archie-core-attribution-layer/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loginCreds = domain.Credentials{Email: "a@b.com", Password: "x"}

func newManager(t *testing.T, store ports.DataStore, userID string) (*ConnectionManager, *repository.ConnectionRepository) {
	t.Helper()
	repo := repository.NewConnectionRepository(store)
	m := NewConnectionManager(repo, zerolog.Nop())
	if userID != "" {
		require.NoError(t, m.SetCurrentUser(context.Background(), userID))
	}
	return m, repo
}

func TestConnectThenDisconnectFacebook(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, repository.NewMemoryStore(), "u1")

	require.NoError(t, m.Connect(ctx, "u1", domain.PlatformFacebook, loginCreds))
	assert.True(t, m.IsConnected(domain.PlatformFacebook))
	assert.False(t, m.IsConnected(domain.PlatformGoogle))

	require.NoError(t, m.Disconnect(ctx, domain.PlatformFacebook))
	assert.False(t, m.IsConnected(domain.PlatformFacebook))
}

func TestConnectEveryPlatform(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, repository.NewMemoryStore(), "u1")

	for _, p := range domain.Platforms {
		require.NoError(t, m.Connect(ctx, "u1", p, domain.Credentials{AccessToken: "tok-" + string(p)}))
		assert.True(t, m.IsConnected(p), string(p))
	}
	assert.Equal(t, domain.Platforms, m.ConnectedPlatforms())
}

func TestConnectRequiresUser(t *testing.T) {
	m, _ := newManager(t, repository.NewMemoryStore(), "")

	err := m.Connect(context.Background(), "", domain.PlatformGoogle, loginCreds)
	assert.True(t, domain.IsKind(err, domain.KindUnauthenticated))

	err = m.Disconnect(context.Background(), domain.PlatformGoogle)
	assert.True(t, domain.IsKind(err, domain.KindUnauthenticated))

	err = m.Refresh(context.Background())
	assert.True(t, domain.IsKind(err, domain.KindUnauthenticated))
}

func TestConnectRejectsBadInput(t *testing.T) {
	m, _ := newManager(t, repository.NewMemoryStore(), "u1")

	err := m.Connect(context.Background(), "u1", domain.PlatformFacebook, domain.Credentials{Email: "a@b.com"})
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))

	err = m.Connect(context.Background(), "u1", "myspace", loginCreds)
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))

	assert.Empty(t, m.Connections())
}

func TestConnectWriteFailureLeavesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m, _ := newManager(t, store, "u1")
	require.NoError(t, m.Connect(ctx, "u1", domain.PlatformGoogle, loginCreds))

	store.failOn("insert", repository.TableConnections, errBoom)
	err := m.Connect(ctx, "u1", domain.PlatformFacebook, loginCreds)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindStoreWriteFailed))
	assert.ErrorIs(t, err, errBoom)

	assert.True(t, m.IsConnected(domain.PlatformGoogle))
	assert.False(t, m.IsConnected(domain.PlatformFacebook))
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m, _ := newManager(t, store, "u1")
	require.NoError(t, m.Connect(ctx, "u1", domain.PlatformTikTok, loginCreds))

	store.failOn("select", repository.TableConnections, errBoom)
	err := m.Refresh(ctx)
	assert.True(t, domain.IsKind(err, domain.KindStoreReadFailed))
	assert.True(t, m.IsConnected(domain.PlatformTikTok))
}

func TestSwitchingUserClearsConnections(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	m, _ := newManager(t, store, "u1")
	for _, p := range []domain.Platform{domain.PlatformGoogle, domain.PlatformSnapchat} {
		require.NoError(t, m.Connect(ctx, "u1", p, loginCreds))
	}

	require.NoError(t, m.SetCurrentUser(ctx, "u2"))
	assert.Equal(t, "u2", m.CurrentUser())
	for _, p := range domain.Platforms {
		assert.False(t, m.IsConnected(p))
	}

	require.NoError(t, m.SetCurrentUser(ctx, ""))
	assert.Empty(t, m.Connections())

	require.NoError(t, m.SetCurrentUser(ctx, "u1"))
	assert.True(t, m.IsConnected(domain.PlatformGoogle))
}

func TestConnectForOtherUserDoesNotLeakIntoSnapshot(t *testing.T) {
	ctx := context.Background()
	m, repo := newManager(t, repository.NewMemoryStore(), "u1")

	require.NoError(t, m.Connect(ctx, "u2", domain.PlatformGoogle, loginCreds))
	assert.False(t, m.IsConnected(domain.PlatformGoogle))

	rows, err := repo.ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRefreshIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, repository.NewMemoryStore(), "u1")
	require.NoError(t, m.Connect(ctx, "u1", domain.PlatformGoogle, loginCreds))
	require.NoError(t, m.Connect(ctx, "u1", domain.PlatformInstagram, loginCreds))

	require.NoError(t, m.Refresh(ctx))
	first := m.Connections()
	require.NoError(t, m.Refresh(ctx))
	assert.Equal(t, first, m.Connections())
}

func TestDuplicateActiveRowsPreferMostRecent(t *testing.T) {
	ctx := context.Background()
	m, repo := newManager(t, repository.NewMemoryStore(), "")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, token := range []string{"old", "newest", "middle"} {
		_, err := repo.Insert(ctx, &domain.PlatformConnection{
			UserID:       "u1",
			PlatformName: domain.PlatformFacebook,
			Credentials:  domain.Credentials{Kind: domain.CredentialOAuthToken, AccessToken: token},
			Status:       domain.ConnectionActive,
			CreatedAt:    base.Add(time.Duration([]int{0, 2, 1}[i]) * time.Hour),
		})
		require.NoError(t, err)
	}

	require.NoError(t, m.SetCurrentUser(ctx, "u1"))
	conn, ok := m.Connection(domain.PlatformFacebook)
	require.True(t, ok)
	assert.Equal(t, "newest", conn.Credentials.AccessToken)
	assert.Len(t, m.Connections(), 1)
}

func TestConnectRevokesSupersededRows(t *testing.T) {
	ctx := context.Background()
	m, repo := newManager(t, repository.NewMemoryStore(), "u1")

	require.NoError(t, m.Connect(ctx, "u1", domain.PlatformGoogle, domain.Credentials{AccessToken: "first"}))
	require.NoError(t, m.Connect(ctx, "u1", domain.PlatformGoogle, domain.Credentials{AccessToken: "second"}))

	active, err := repo.ListActive(ctx, "u1", domain.PlatformGoogle)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "second", active[0].Credentials.AccessToken)

	all, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// pausingRepo lets a test hold a ListByUser call after it has read its rows
type pausingRepo struct {
	ports.ConnectionRepository
	loaded chan struct{}
	resume chan struct{}
}

func (r *pausingRepo) ListByUser(ctx context.Context, userID string) ([]domain.PlatformConnection, error) {
	rows, err := r.ConnectionRepository.ListByUser(ctx, userID)
	if r.loaded != nil {
		loaded, resume := r.loaded, r.resume
		r.loaded = nil
		close(loaded)
		<-resume
	}
	return rows, err
}

func TestStaleRefreshDoesNotOverwriteNewerLoad(t *testing.T) {
	ctx := context.Background()
	repo := &pausingRepo{ConnectionRepository: repository.NewConnectionRepository(repository.NewMemoryStore())}
	m := NewConnectionManager(repo, zerolog.Nop())
	require.NoError(t, m.SetCurrentUser(ctx, "u1"))

	repo.loaded = make(chan struct{})
	repo.resume = make(chan struct{})
	loaded := repo.loaded

	done := make(chan error, 1)
	go func() { done <- m.Refresh(ctx) }()
	<-loaded

	require.NoError(t, m.Connect(ctx, "u1", domain.PlatformFacebook, loginCreds))
	assert.True(t, m.IsConnected(domain.PlatformFacebook))

	close(repo.resume)
	require.NoError(t, <-done)
	assert.True(t, m.IsConnected(domain.PlatformFacebook))
}

func TestLoadForPreviousUserIsDiscarded(t *testing.T) {
	ctx := context.Background()
	inner := repository.NewConnectionRepository(repository.NewMemoryStore())
	_, err := inner.Insert(ctx, &domain.PlatformConnection{
		UserID: "u1", PlatformName: domain.PlatformGoogle, Credentials: loginCreds, Status: domain.ConnectionActive,
	})
	require.NoError(t, err)

	repo := &pausingRepo{ConnectionRepository: inner, loaded: make(chan struct{}), resume: make(chan struct{})}
	m := NewConnectionManager(repo, zerolog.Nop())
	loaded := repo.loaded

	done := make(chan error, 1)
	go func() { done <- m.SetCurrentUser(ctx, "u1") }()
	<-loaded

	require.NoError(t, m.SetCurrentUser(ctx, "u2"))
	close(repo.resume)
	require.NoError(t, <-done)

	assert.Equal(t, "u2", m.CurrentUser())
	assert.False(t, m.IsConnected(domain.PlatformGoogle))
}

func TestConnectionRegistryIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	reg := NewConnectionRegistry(repository.NewConnectionRepository(repository.NewMemoryStore()), zerolog.Nop())

	_, err := reg.For(ctx, "")
	assert.True(t, domain.IsKind(err, domain.KindUnauthenticated))

	m1, err := reg.For(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, m1.Connect(ctx, "u1", domain.PlatformGoogle, loginCreds))

	m2, err := reg.For(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, m2.IsConnected(domain.PlatformGoogle))

	again, err := reg.For(ctx, "u1")
	require.NoError(t, err)
	assert.Same(t, m1, again)

	reg.Forget(ctx, "u1")
	assert.False(t, m1.IsConnected(domain.PlatformGoogle))
	assert.Equal(t, "", m1.CurrentUser())

	fresh, err := reg.For(ctx, "u1")
	require.NoError(t, err)
	assert.NotSame(t, m1, fresh)
	assert.True(t, fresh.IsConnected(domain.PlatformGoogle))
}

func TestConnectionRegistryEvictsIdleManagers(t *testing.T) {
	ctx := context.Background()
	reg := NewConnectionRegistry(repository.NewConnectionRepository(repository.NewMemoryStore()), zerolog.Nop())
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return clock }

	idle, err := reg.For(ctx, "idle")
	require.NoError(t, err)
	require.NoError(t, idle.Connect(ctx, "idle", domain.PlatformGoogle, loginCreds))
	_, err = reg.For(ctx, "busy")
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	clock = clock.Add(DefaultManagerIdleTTL / 2)
	_, err = reg.For(ctx, "busy")
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	clock = clock.Add(DefaultManagerIdleTTL/2 + time.Minute)
	_, err = reg.For(ctx, "busy")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	// the evicted user reloads from the data store
	again, err := reg.For(ctx, "idle")
	require.NoError(t, err)
	assert.NotSame(t, idle, again)
	assert.True(t, again.IsConnected(domain.PlatformGoogle))
	assert.Equal(t, 2, reg.Len())
}
