package repository

import (
	"context"
	"testing"
	"time"

	"archie-core-attribution-layer/internal/domain"
	"archie-core-attribution-layer/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionRepository_ListActiveNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewConnectionRepository(NewMemoryStore())
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, p := range []domain.Platform{domain.PlatformGoogle, domain.PlatformGoogle, domain.PlatformTikTok} {
		_, err := repo.Insert(ctx, &domain.PlatformConnection{
			UserID:       "user-1",
			PlatformName: p,
			Credentials:  domain.Credentials{Kind: domain.CredentialOAuthToken, AccessToken: "tok"},
			Status:       domain.ConnectionActive,
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	active, err := repo.ListActive(ctx, "user-1", domain.PlatformGoogle)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.True(t, active[0].CreatedAt.After(active[1].CreatedAt))
	assert.Equal(t, "tok", active[0].Credentials.AccessToken)

	require.NoError(t, repo.Revoke(ctx, active[1].ID))
	active, err = repo.ListActive(ctx, "user-1", domain.PlatformGoogle)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	other, err := repo.ListByUser(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestInstallationRepository_TerminalRowsAreImmutable(t *testing.T) {
	ctx := context.Background()
	repo := NewInstallationRepository(NewMemoryStore())

	inst, err := repo.Create(ctx, "store-1", 42)
	require.NoError(t, err)
	assert.Equal(t, domain.InstallationPending, inst.Status)
	assert.Equal(t, uint64(42), inst.ThemeID)

	done, err := repo.Finalize(ctx, inst.ID, domain.InstallationFailed, "remote write failed")
	require.NoError(t, err)
	assert.Equal(t, domain.InstallationFailed, done.Status)
	assert.Equal(t, "remote write failed", done.Error)

	_, err = repo.Finalize(ctx, inst.ID, domain.InstallationCompleted, "")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	_, err = repo.Finalize(ctx, inst.ID, domain.InstallationPending, "")
	assert.Error(t, err)

	got, err := repo.GetByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstallationFailed, got.Status)

	retry, err := repo.Create(ctx, "store-1", 42)
	require.NoError(t, err)
	assert.NotEqual(t, inst.ID, retry.ID)

	history, err := repo.ListByStore(ctx, "store-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestStorefrontRepository_LookupAndTokenUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewStorefrontRepository(NewMemoryStore())

	missing, err := repo.GetByShopDomain(ctx, "foo.myshopify.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := repo.Create(ctx, &domain.StorefrontStore{
		UserID:      "user-1",
		ShopDomain:  "foo.myshopify.com",
		AccessToken: "enc-1",
		TrackingID:  "TRK123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	updated, err := repo.UpdateAccessToken(ctx, created.ID, "enc-2")
	require.NoError(t, err)
	assert.Equal(t, "enc-2", updated.AccessToken)
	assert.Equal(t, "TRK123", updated.TrackingID)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "foo.myshopify.com", byID.ShopDomain)

	stores, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, stores, 1)
}

func TestPerformanceRepository_RecordUpserts(t *testing.T) {
	ctx := context.Background()
	repo := NewPerformanceRepository(NewMemoryStore())
	day := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Record(ctx, "user-1", domain.PlatformGoogle, domain.PerformancePoint{Date: day, Spend: 10, Conversions: 1, Revenue: 30}))
	require.NoError(t, repo.Record(ctx, "user-1", domain.PlatformGoogle, domain.PerformancePoint{Date: day, Spend: 12, Conversions: 2, Revenue: 40}))
	require.NoError(t, repo.Record(ctx, "user-1", domain.PlatformGoogle, domain.PerformancePoint{Date: day.AddDate(0, 0, -1), Spend: 5}))

	series, err := repo.ListSeries(ctx, "user-1", domain.PlatformGoogle)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.True(t, series[0].Date.Before(series[1].Date))
	assert.Equal(t, 12.0, series[1].Spend)
	assert.Equal(t, int64(2), series[1].Conversions)
}

func TestSettingsRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(NewMemoryStore())

	none, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, none)

	settings := domain.DefaultAttributionSettings("user-1")
	require.NoError(t, repo.Save(ctx, &settings))

	settings.SelectedModel = domain.ModelLinear
	settings.Weights = domain.AttributionWeights{domain.ModelLinear: 55}
	require.NoError(t, repo.Save(ctx, &settings))

	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.ModelLinear, got.SelectedModel)
	assert.Equal(t, domain.AttributionWeights{domain.ModelLinear: 55}, got.Weights)
}
