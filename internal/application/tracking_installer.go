package application

import (
	"context"
	"fmt"
	"slices"
	"time"

	"archie-core-attribution-layer/internal/domain"
	"archie-core-attribution-layer/internal/infrastructure/metrics"
	"archie-core-attribution-layer/internal/ports"
	"archie-core-attribution-layer/internal/theme"

	"github.com/rs/zerolog"
)

// DefaultInstallTimeout bounds one installation pipeline
const DefaultInstallTimeout = 60 * time.Second

// finalizeTimeout bounds the terminal status write. It starts after the
// pipeline ends, so an expired pipeline still records its failure.
const finalizeTimeout = 10 * time.Second

// StoreLoader loads a storefront with a usable access token
type StoreLoader interface {
	GetStore(ctx context.Context, storeID string) (*domain.StorefrontStore, error)
}

// InstallerConfig configures the tracking installer
type InstallerConfig struct {
	ScriptURL string
	Timeout   time.Duration
}

// TrackingInstaller injects the tracking snippet into a storefront theme and
// records every attempt as a new installation row
type TrackingInstaller struct {
	installations ports.InstallationRepository
	stores        StoreLoader
	assets        ports.ThemeAssets
	locker        ports.Locker
	events        ports.InstallationEvents
	cfg           InstallerConfig
	logger        zerolog.Logger
}

// NewTrackingInstaller creates a new tracking installer. events may be nil.
func NewTrackingInstaller(
	installations ports.InstallationRepository,
	stores StoreLoader,
	assets ports.ThemeAssets,
	locker ports.Locker,
	events ports.InstallationEvents,
	cfg InstallerConfig,
	logger zerolog.Logger,
) *TrackingInstaller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultInstallTimeout
	}
	return &TrackingInstaller{
		installations: installations,
		stores:        stores,
		assets:        assets,
		locker:        locker,
		events:        events,
		cfg:           cfg,
		logger:        logger,
	}
}

// InstallTrackingCode runs the installation pipeline for storeID. A themeID of
// 0 targets the published theme. Once the pending row exists the pipeline runs
// to a terminal status even if ctx is cancelled. On failure the failed
// installation is returned together with the error.
func (i *TrackingInstaller) InstallTrackingCode(ctx context.Context, storeID string, themeID uint64) (*domain.TrackingInstallation, error) {
	if storeID == "" {
		return nil, domain.NewError(domain.KindInvalidInput, "install tracking code", fmt.Errorf("store id is required"))
	}

	release, err := i.locker.Acquire(ctx, "install:"+storeID)
	if err != nil {
		i.logger.Warn().Err(err).Str("storeId", storeID).Msg("Installation already in progress for store")
		return nil, domain.NewError(domain.KindInstallationInProgress, "install tracking code", err)
	}
	defer release()

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.cfg.Timeout)
	defer cancel()
	start := time.Now()

	// Step 1: durable pending record
	inst, err := i.installations.Create(runCtx, storeID, themeID)
	if err != nil {
		i.logger.Error().Err(err).Str("storeId", storeID).Msg("Failed to create installation record")
		return nil, domain.NewError(domain.KindInstallationRecordFailed, "install tracking code", err)
	}

	shopDomain, stepErr := i.apply(runCtx, inst)

	// Step 5: finalize
	status, reason := domain.InstallationCompleted, ""
	if stepErr != nil {
		status, reason = domain.InstallationFailed, stepErr.Error()
	}
	finalizeCtx, cancelFinalize := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancelFinalize()
	final, err := i.installations.Finalize(finalizeCtx, inst.ID, status, reason)
	metrics.InstallationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		i.logger.Error().Err(err).
			Str("installationId", inst.ID).
			Str("status", string(status)).
			Msg("Failed to finalize installation")
		metrics.InstallationsTotal.WithLabelValues(string(domain.InstallationPending)).Inc()
		if stepErr != nil {
			return inst, stepErr
		}
		return inst, domain.NewError(domain.KindInstallationRecordFailed, "install tracking code", err)
	}

	metrics.InstallationsTotal.WithLabelValues(string(final.Status)).Inc()
	if i.events != nil {
		i.events.Publish(&domain.InstallationEvent{Installation: *final, ShopDomain: shopDomain})
	}

	if stepErr != nil {
		return final, stepErr
	}
	i.logger.Info().
		Str("installationId", final.ID).
		Str("storeId", storeID).
		Str("shopDomain", shopDomain).
		Msg("Tracking code installed")
	return final, nil
}

// apply runs steps 2-4 and returns the shop domain when the store was loaded
func (i *TrackingInstaller) apply(ctx context.Context, inst *domain.TrackingInstallation) (string, error) {
	log := i.logger.With().Str("installationId", inst.ID).Str("storeId", inst.StoreID).Logger()

	// Step 2: load the store
	store, err := i.stores.GetStore(ctx, inst.StoreID)
	if err != nil {
		// logged by the loader
		return "", domain.NewError(domain.KindStoreNotFound, "install tracking code", err)
	}
	if store == nil {
		log.Error().Msg("Store not found for installation")
		return "", domain.NewError(domain.KindStoreNotFound, "install tracking code", fmt.Errorf("store %s not found", inst.StoreID))
	}
	shop := store.ShopDomain

	// Step 3: render
	snippet := theme.RenderSnippet(store.TrackingID, i.cfg.ScriptURL)

	// Step 4: apply to the theme layout
	themeID := inst.ThemeID
	if themeID == 0 {
		themeID, err = i.assets.MainThemeID(ctx, shop, store.AccessToken)
		if err != nil {
			log.Error().Err(err).Str("shopDomain", shop).Msg("Failed to resolve published theme")
			return shop, domain.NewError(domain.KindRemoteAPIFailed, "install tracking code", err)
		}
	}
	log = log.With().Str("shopDomain", shop).Uint64("themeId", themeID).Logger()

	keys, err := i.assets.ListAssetKeys(ctx, shop, store.AccessToken, themeID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list theme assets")
		return shop, domain.NewError(domain.KindRemoteAPIFailed, "install tracking code", err)
	}
	if !slices.Contains(keys, ports.LayoutAssetKey) {
		log.Error().Msg("Theme has no layout asset")
		return shop, domain.NewError(domain.KindThemeLayoutInvalid, "install tracking code", fmt.Errorf("theme %d has no %s", themeID, ports.LayoutAssetKey))
	}

	source, err := i.assets.GetAsset(ctx, shop, store.AccessToken, themeID, ports.LayoutAssetKey)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch theme layout")
		return shop, domain.NewError(domain.KindRemoteAPIFailed, "install tracking code", err)
	}

	layout := theme.ParseLayout(source)
	inserted, err := layout.InsertBeforeHeadClose(store.TrackingID, snippet)
	if err != nil {
		log.Error().Err(err).Msg("Theme layout cannot receive the tracking snippet")
		return shop, domain.NewError(domain.KindThemeLayoutInvalid, "install tracking code", err)
	}
	if !inserted {
		log.Info().Msg("Tracking snippet already present, skipping theme write")
		return shop, nil
	}

	if err := i.assets.PutAsset(ctx, shop, store.AccessToken, themeID, ports.LayoutAssetKey, layout.String()); err != nil {
		log.Error().Err(err).Msg("Failed to write theme layout")
		return shop, domain.NewError(domain.KindRemoteAPIFailed, "install tracking code", err)
	}
	return shop, nil
}

// ListInstallations returns the installation history of a store, newest first
func (i *TrackingInstaller) ListInstallations(ctx context.Context, storeID string) ([]*domain.TrackingInstallation, error) {
	list, err := i.installations.ListByStore(ctx, storeID)
	if err != nil {
		i.logger.Error().Err(err).Str("storeId", storeID).Msg("Failed to list installations")
		return nil, domain.NewError(domain.KindStoreReadFailed, "list installations", err)
	}
	return list, nil
}
