package application

import (
	"context"
	"fmt"

	"archie-core-attribution-layer/internal/domain"
	"archie-core-attribution-layer/internal/ports"

	"github.com/rs/zerolog"
)

// StorefrontService owns storefront records and their tracking ids
type StorefrontService struct {
	repo      ports.StorefrontRepository
	generator ports.TrackingIDGenerator
	crypto    ports.EncryptionService
	logger    zerolog.Logger
}

// NewStorefrontService creates a new storefront service
func NewStorefrontService(
	repo ports.StorefrontRepository,
	generator ports.TrackingIDGenerator,
	crypto ports.EncryptionService,
	logger zerolog.Logger,
) *StorefrontService {
	return &StorefrontService{
		repo:      repo,
		generator: generator,
		crypto:    crypto,
		logger:    logger,
	}
}

// ConnectStore registers a storefront for userID. An already registered shop
// keeps its tracking id; only a changed access token is written.
func (s *StorefrontService) ConnectStore(ctx context.Context, userID, shopDomain, accessToken string) (*domain.StorefrontStore, error) {
	if userID == "" {
		s.logger.Warn().Str("shopDomain", shopDomain).Msg("Store connect attempted without an authenticated user")
		return nil, domain.NewError(domain.KindUnauthenticated, "connect store", nil)
	}
	shop, err := domain.NormalizeShopDomain(shopDomain)
	if err != nil {
		s.logger.Warn().Err(err).Str("userId", userID).Msg("Rejected shop domain")
		return nil, err
	}
	if accessToken == "" {
		s.logger.Warn().Str("userId", userID).Str("shopDomain", shop).Msg("Rejected store without access token")
		return nil, domain.NewError(domain.KindInvalidInput, "connect store", fmt.Errorf("access token is required"))
	}

	// Look up before generating so a shop never gets a second tracking id
	existing, err := s.repo.GetByShopDomain(ctx, shop)
	if err != nil {
		s.logger.Error().Err(err).Str("shopDomain", shop).Msg("Failed to check existing store")
		return nil, domain.NewError(domain.KindStoreReadFailed, "connect store", err)
	}
	if existing != nil {
		return s.reconnect(ctx, userID, existing, accessToken)
	}

	trackingID, err := s.generator.Generate(ctx)
	if err != nil || trackingID == "" {
		if err == nil {
			err = fmt.Errorf("generator returned an empty id")
		}
		s.logger.Error().Err(err).Str("shopDomain", shop).Msg("Failed to generate tracking id")
		return nil, domain.NewError(domain.KindTrackingIDGenerationFailed, "connect store", err)
	}

	encrypted, err := s.crypto.Encrypt(accessToken)
	if err != nil {
		s.logger.Error().Err(err).Str("shopDomain", shop).Msg("Failed to encrypt access token")
		return nil, domain.NewError(domain.KindStoreWriteFailed, "connect store", err)
	}

	created, err := s.repo.Create(ctx, &domain.StorefrontStore{
		UserID:      userID,
		ShopDomain:  shop,
		AccessToken: encrypted,
		TrackingID:  trackingID,
	})
	if err != nil {
		// A concurrent connect of the same shop may have won the unique index
		if winner, lookupErr := s.repo.GetByShopDomain(ctx, shop); lookupErr == nil && winner != nil {
			s.logger.Info().Str("shopDomain", shop).Msg("Store was registered concurrently, using existing record")
			return s.reconnect(ctx, userID, winner, accessToken)
		}
		s.logger.Error().Err(err).Str("shopDomain", shop).Msg("Failed to create store")
		return nil, domain.NewError(domain.KindStoreWriteFailed, "connect store", err)
	}

	s.logger.Info().
		Str("userId", userID).
		Str("shopDomain", shop).
		Str("storeId", created.ID).
		Str("trackingId", created.TrackingID).
		Msg("Created new store")

	created.AccessToken = accessToken
	return created, nil
}

func (s *StorefrontService) reconnect(ctx context.Context, userID string, existing *domain.StorefrontStore, accessToken string) (*domain.StorefrontStore, error) {
	if existing.UserID != userID {
		s.logger.Warn().
			Str("userId", userID).
			Str("shopDomain", existing.ShopDomain).
			Msg("Shop is already connected by another user")
		return nil, domain.NewError(domain.KindInvalidInput, "connect store", fmt.Errorf("shop %s is already connected", existing.ShopDomain))
	}

	current, err := s.crypto.Decrypt(existing.AccessToken)
	if err == nil && current == accessToken {
		s.logger.Info().Str("shopDomain", existing.ShopDomain).Msg("Store already exists, returning existing record")
		existing.AccessToken = accessToken
		return existing, nil
	}

	encrypted, err := s.crypto.Encrypt(accessToken)
	if err != nil {
		s.logger.Error().Err(err).Str("shopDomain", existing.ShopDomain).Msg("Failed to encrypt access token")
		return nil, domain.NewError(domain.KindStoreWriteFailed, "connect store", err)
	}
	updated, err := s.repo.UpdateAccessToken(ctx, existing.ID, encrypted)
	if err != nil {
		s.logger.Error().Err(err).Str("storeId", existing.ID).Msg("Failed to update store access token")
		return nil, domain.NewError(domain.KindStoreWriteFailed, "connect store", err)
	}

	s.logger.Info().Str("storeId", updated.ID).Msg("Store access token rotated")
	updated.AccessToken = accessToken
	return updated, nil
}

// GetStore loads a store with its access token decrypted
func (s *StorefrontService) GetStore(ctx context.Context, storeID string) (*domain.StorefrontStore, error) {
	store, err := s.repo.GetByID(ctx, storeID)
	if err != nil {
		s.logger.Error().Err(err).Str("storeId", storeID).Msg("Failed to load store")
		return nil, domain.NewError(domain.KindStoreReadFailed, "get store", err)
	}
	if store == nil {
		s.logger.Warn().Str("storeId", storeID).Msg("Store not found")
		return nil, domain.NewError(domain.KindStoreNotFound, "get store", fmt.Errorf("store %s not found", storeID))
	}

	token, err := s.crypto.Decrypt(store.AccessToken)
	if err != nil {
		s.logger.Error().Err(err).Str("storeId", storeID).Msg("Failed to decrypt store access token")
		return nil, domain.NewError(domain.KindStoreReadFailed, "get store", err)
	}
	store.AccessToken = token
	return store, nil
}

// GetStoreForUser loads a store and checks that userID owns it
func (s *StorefrontService) GetStoreForUser(ctx context.Context, userID, storeID string) (*domain.StorefrontStore, error) {
	if userID == "" {
		return nil, domain.NewError(domain.KindUnauthenticated, "get store", nil)
	}
	store, err := s.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.UserID != userID {
		s.logger.Warn().Str("userId", userID).Str("storeId", storeID).Msg("Store belongs to another user")
		return nil, domain.NewError(domain.KindStoreNotFound, "get store", fmt.Errorf("store %s not found", storeID))
	}
	return store, nil
}

// ListStores returns the stores of userID without their access tokens
func (s *StorefrontService) ListStores(ctx context.Context, userID string) ([]*domain.StorefrontStore, error) {
	if userID == "" {
		return nil, domain.NewError(domain.KindUnauthenticated, "list stores", nil)
	}
	stores, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("userId", userID).Msg("Failed to list stores")
		return nil, domain.NewError(domain.KindStoreReadFailed, "list stores", err)
	}
	for _, st := range stores {
		st.AccessToken = ""
	}
	return stores, nil
}
