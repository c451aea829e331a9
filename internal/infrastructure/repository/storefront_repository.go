package repository

import (
	"context"
	"fmt"
	"time"

	"archie-core-attribution-layer/internal/domain"
	"archie-core-attribution-layer/internal/infrastructure/repository/entity"
	"archie-core-attribution-layer/internal/ports"
)

// StorefrontRepository persists storefront stores
type StorefrontRepository struct {
	store ports.DataStore
}

// NewStorefrontRepository creates a new storefront repository
func NewStorefrontRepository(store ports.DataStore) *StorefrontRepository {
	return &StorefrontRepository{store: store}
}

// Create inserts a store row
func (r *StorefrontRepository) Create(ctx context.Context, s *domain.StorefrontStore) (*domain.StorefrontStore, error) {
	doc := entity.StorefrontDocFromDomain(s)
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	row, err := entity.EncodeDoc(doc)
	if err != nil {
		return nil, err
	}
	stored, err := r.store.Insert(ctx, TableStores, row)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	return decodeStore(stored)
}

// GetByID retrieves a store by id; nil when it does not exist
func (r *StorefrontRepository) GetByID(ctx context.Context, id string) (*domain.StorefrontStore, error) {
	return r.getOne(ctx, ports.Filter{"_id": id})
}

// GetByShopDomain retrieves a store by its shop domain; nil when it does not exist
func (r *StorefrontRepository) GetByShopDomain(ctx context.Context, shopDomain string) (*domain.StorefrontStore, error) {
	return r.getOne(ctx, ports.Filter{"shopDomain": shopDomain})
}

// ListByUser returns the stores owned by a user
func (r *StorefrontRepository) ListByUser(ctx context.Context, userID string) ([]*domain.StorefrontStore, error) {
	rows, err := r.store.Select(ctx, TableStores, ports.Filter{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	stores := make([]*domain.StorefrontStore, 0, len(rows))
	for _, row := range rows {
		s, err := decodeStore(row)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, nil
}

// UpdateAccessToken replaces the (encrypted) access token. The tracking id is never touched.
func (r *StorefrontRepository) UpdateAccessToken(ctx context.Context, id, accessToken string) (*domain.StorefrontStore, error) {
	row, err := r.store.Update(ctx, TableStores,
		ports.Row{"accessToken": accessToken, "updatedAt": time.Now().UTC()},
		ports.Filter{"_id": id},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update store access token: %w", err)
	}
	return decodeStore(row)
}

func (r *StorefrontRepository) getOne(ctx context.Context, filters ports.Filter) (*domain.StorefrontStore, error) {
	rows, err := r.store.Select(ctx, TableStores, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return decodeStore(rows[0])
}

func decodeStore(row ports.Row) (*domain.StorefrontStore, error) {
	var doc entity.StorefrontDoc
	if err := entity.DecodeRow(row, &doc); err != nil {
		return nil, err
	}
	return doc.ToDomain(), nil
}
