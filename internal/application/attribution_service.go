package application

import (
	"context"
	"fmt"
	"math"
	"sync"

	"archie-core-attribution-layer/internal/attribution"
	"archie-core-attribution-layer/internal/domain"
	"archie-core-attribution-layer/internal/infrastructure/metrics"
	"archie-core-attribution-layer/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// AttributionService loads performance and settings and runs the aggregator
type AttributionService struct {
	performance ports.PerformanceRepository
	settings    ports.SettingsRepository
	logger      zerolog.Logger
}

// NewAttributionService creates a new attribution service
func NewAttributionService(
	performance ports.PerformanceRepository,
	settings ports.SettingsRepository,
	logger zerolog.Logger,
) *AttributionService {
	return &AttributionService{
		performance: performance,
		settings:    settings,
		logger:      logger,
	}
}

// Report blends the series of every platform the manager's user has connected
func (s *AttributionService) Report(ctx context.Context, manager *ConnectionManager, rng attribution.DateRange) (attribution.Report, error) {
	report, err := s.report(ctx, manager, rng)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ReportsTotal.WithLabelValues(result).Inc()
	return report, err
}

func (s *AttributionService) report(ctx context.Context, manager *ConnectionManager, rng attribution.DateRange) (attribution.Report, error) {
	userID := manager.CurrentUser()
	if userID == "" {
		s.logger.Warn().Msg("Attribution report requested without an authenticated user")
		return attribution.Report{}, domain.NewError(domain.KindUnauthenticated, "attribution report", nil)
	}

	platforms := manager.ConnectedPlatforms()
	series := make(map[domain.Platform][]domain.PerformancePoint, len(platforms))
	var mu sync.Mutex
	var settings domain.AttributionSettings

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range platforms {
		g.Go(func() error {
			points, err := s.performance.ListSeries(gctx, userID, p)
			if err != nil {
				s.logger.Error().Err(err).Str("userId", userID).Str("platform", string(p)).Msg("Failed to load performance series")
				return domain.NewError(domain.KindStoreReadFailed, "attribution report", err)
			}
			mu.Lock()
			series[p] = points
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		loaded, err := s.GetSettings(gctx, userID)
		if err != nil {
			return err
		}
		settings = loaded
		return nil
	})
	if err := g.Wait(); err != nil {
		return attribution.Report{}, err
	}

	report, err := attribution.Aggregate(attribution.Input{
		Series:  series,
		Range:   rng,
		Model:   settings.SelectedModel,
		Weights: settings.Weights,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("userId", userID).Msg("Failed to aggregate attribution")
		return attribution.Report{}, err
	}
	return report, nil
}

// GetSettings returns the user's settings, or the defaults when none were saved
func (s *AttributionService) GetSettings(ctx context.Context, userID string) (domain.AttributionSettings, error) {
	if userID == "" {
		return domain.AttributionSettings{}, domain.NewError(domain.KindUnauthenticated, "get attribution settings", nil)
	}
	stored, err := s.settings.Get(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("userId", userID).Msg("Failed to load attribution settings")
		return domain.AttributionSettings{}, domain.NewError(domain.KindStoreReadFailed, "get attribution settings", err)
	}
	if stored == nil {
		return domain.DefaultAttributionSettings(userID), nil
	}
	return *stored, nil
}

// SaveSettings validates and stores the user's settings
func (s *AttributionService) SaveSettings(ctx context.Context, settings domain.AttributionSettings) (domain.AttributionSettings, error) {
	if settings.UserID == "" {
		return domain.AttributionSettings{}, domain.NewError(domain.KindUnauthenticated, "save attribution settings", nil)
	}
	if settings.SelectedModel == "" {
		settings.SelectedModel = domain.ModelLastClick
	}
	if _, err := domain.ParseAttributionModel(string(settings.SelectedModel)); err != nil {
		s.logger.Warn().Err(err).Str("userId", settings.UserID).Msg("Rejected attribution settings")
		return domain.AttributionSettings{}, err
	}
	if settings.Weights == nil {
		settings.Weights = domain.DefaultAttributionWeights()
	}
	if err := settings.Weights.Validate(); err != nil {
		s.logger.Warn().Err(err).Str("userId", settings.UserID).Msg("Rejected attribution settings")
		return domain.AttributionSettings{}, err
	}

	if err := s.settings.Save(ctx, &settings); err != nil {
		s.logger.Error().Err(err).Str("userId", settings.UserID).Msg("Failed to save attribution settings")
		return domain.AttributionSettings{}, domain.NewError(domain.KindStoreWriteFailed, "save attribution settings", err)
	}

	s.logger.Info().
		Str("userId", settings.UserID).
		Str("model", string(settings.SelectedModel)).
		Msg("Attribution settings saved")
	return settings, nil
}

// RecordPerformance upserts one day of platform performance
func (s *AttributionService) RecordPerformance(ctx context.Context, userID string, platform domain.Platform, point domain.PerformancePoint) error {
	if userID == "" {
		return domain.NewError(domain.KindUnauthenticated, "record performance", nil)
	}
	if _, err := domain.ParsePlatform(string(platform)); err != nil {
		s.logger.Warn().Err(err).Str("userId", userID).Msg("Rejected performance point")
		return err
	}
	if err := validatePoint(point); err != nil {
		s.logger.Warn().Err(err).Str("userId", userID).Str("platform", string(platform)).Msg("Rejected performance point")
		return err
	}

	if err := s.performance.Record(ctx, userID, platform, point); err != nil {
		s.logger.Error().Err(err).Str("userId", userID).Str("platform", string(platform)).Msg("Failed to record performance")
		return domain.NewError(domain.KindStoreWriteFailed, "record performance", err)
	}
	return nil
}

func validatePoint(p domain.PerformancePoint) error {
	switch {
	case p.Date.IsZero():
		return domain.NewError(domain.KindInvalidInput, "record performance", fmt.Errorf("date is required"))
	case p.Spend < 0 || math.IsNaN(p.Spend) || math.IsInf(p.Spend, 0):
		return domain.NewError(domain.KindInvalidInput, "record performance", fmt.Errorf("spend must be a non-negative number"))
	case p.Revenue < 0 || math.IsNaN(p.Revenue) || math.IsInf(p.Revenue, 0):
		return domain.NewError(domain.KindInvalidInput, "record performance", fmt.Errorf("revenue must be a non-negative number"))
	case p.Conversions < 0:
		return domain.NewError(domain.KindInvalidInput, "record performance", fmt.Errorf("conversions must not be negative"))
	}
	return nil
}
