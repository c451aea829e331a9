package entity

import (
	"time"

	"archie-core-attribution-layer/internal/domain"
)

// StorefrontDoc represents a connected storefront. AccessToken holds the encrypted token.
type StorefrontDoc struct {
	ID          string    `bson:"_id,omitempty"`
	UserID      string    `bson:"userId"`
	ShopDomain  string    `bson:"shopDomain"`
	AccessToken string    `bson:"accessToken"`
	TrackingID  string    `bson:"trackingId"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// ToDomain converts the document to a domain entity
func (d *StorefrontDoc) ToDomain() *domain.StorefrontStore {
	return &domain.StorefrontStore{
		ID:          d.ID,
		UserID:      d.UserID,
		ShopDomain:  d.ShopDomain,
		AccessToken: d.AccessToken,
		TrackingID:  d.TrackingID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// StorefrontDocFromDomain converts a domain entity to a document
func StorefrontDocFromDomain(s *domain.StorefrontStore) *StorefrontDoc {
	return &StorefrontDoc{
		ID:          s.ID,
		UserID:      s.UserID,
		ShopDomain:  s.ShopDomain,
		AccessToken: s.AccessToken,
		TrackingID:  s.TrackingID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// InstallationDoc represents one tracking installation attempt
type InstallationDoc struct {
	ID        string    `bson:"_id,omitempty"`
	StoreID   string    `bson:"storeId"`
	ThemeID   int64     `bson:"themeId"`
	Status    string    `bson:"status"`
	Error     string    `bson:"error,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// ToDomain converts the document to a domain entity
func (d *InstallationDoc) ToDomain() *domain.TrackingInstallation {
	return &domain.TrackingInstallation{
		ID:        d.ID,
		StoreID:   d.StoreID,
		ThemeID:   uint64(d.ThemeID),
		Status:    domain.InstallationStatus(d.Status),
		Error:     d.Error,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// InstallationDocFromDomain converts a domain entity to a document
func InstallationDocFromDomain(i *domain.TrackingInstallation) *InstallationDoc {
	return &InstallationDoc{
		ID:        i.ID,
		StoreID:   i.StoreID,
		ThemeID:   int64(i.ThemeID),
		Status:    string(i.Status),
		Error:     i.Error,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}
