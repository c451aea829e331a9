package ports

import (
	"context"

	"archie-core-attribution-layer/internal/domain"
)

// ConnectionRepository defines the interface for platform connection persistence
type ConnectionRepository interface {
	Insert(ctx context.Context, conn *domain.PlatformConnection) (*domain.PlatformConnection, error)
	ListByUser(ctx context.Context, userID string) ([]domain.PlatformConnection, error)
	ListActive(ctx context.Context, userID string, platform domain.Platform) ([]domain.PlatformConnection, error)
	Revoke(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// StorefrontRepository defines the interface for storefront persistence.
// Lookups return nil, nil when nothing matches.
type StorefrontRepository interface {
	Create(ctx context.Context, store *domain.StorefrontStore) (*domain.StorefrontStore, error)
	GetByID(ctx context.Context, id string) (*domain.StorefrontStore, error)
	GetByShopDomain(ctx context.Context, shopDomain string) (*domain.StorefrontStore, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.StorefrontStore, error)
	UpdateAccessToken(ctx context.Context, id, accessToken string) (*domain.StorefrontStore, error)
}

// InstallationRepository defines the interface for the append-only installation history
type InstallationRepository interface {
	Create(ctx context.Context, storeID string, themeID uint64) (*domain.TrackingInstallation, error)
	Finalize(ctx context.Context, id string, status domain.InstallationStatus, reason string) (*domain.TrackingInstallation, error)
	GetByID(ctx context.Context, id string) (*domain.TrackingInstallation, error)
	ListByStore(ctx context.Context, storeID string) ([]*domain.TrackingInstallation, error)
}

// PerformanceRepository defines the interface for daily platform performance
type PerformanceRepository interface {
	Record(ctx context.Context, userID string, platform domain.Platform, point domain.PerformancePoint) error
	ListSeries(ctx context.Context, userID string, platform domain.Platform) ([]domain.PerformancePoint, error)
}

// SettingsRepository defines the interface for attribution settings. Get returns nil when unset.
type SettingsRepository interface {
	Get(ctx context.Context, userID string) (*domain.AttributionSettings, error)
	Save(ctx context.Context, settings *domain.AttributionSettings) error
}
