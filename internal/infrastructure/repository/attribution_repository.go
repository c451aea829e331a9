package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"archie-core-attribution-layer/internal/domain"
	"archie-core-attribution-layer/internal/infrastructure/repository/entity"
	"archie-core-attribution-layer/internal/ports"
)

// PerformanceRepository persists daily per-platform performance
type PerformanceRepository struct {
	store ports.DataStore
}

// NewPerformanceRepository creates a new performance repository
func NewPerformanceRepository(store ports.DataStore) *PerformanceRepository {
	return &PerformanceRepository{store: store}
}

// Record upserts the point for (user, platform, day)
func (r *PerformanceRepository) Record(ctx context.Context, userID string, platform domain.Platform, p domain.PerformancePoint) error {
	day := p.Date.UTC().Format(entity.DateLayout)
	key := ports.Filter{"userId": userID, "platformName": string(platform), "date": day}
	patch := ports.Row{
		"spend":       p.Spend,
		"conversions": p.Conversions,
		"revenue":     p.Revenue,
		"updatedAt":   time.Now().UTC(),
	}

	rows, err := r.store.Select(ctx, TablePerformance, key)
	if err != nil {
		return fmt.Errorf("failed to get performance: %w", err)
	}
	if len(rows) > 0 {
		if _, err := r.store.Update(ctx, TablePerformance, patch, key); err != nil {
			return fmt.Errorf("failed to update performance: %w", err)
		}
		return nil
	}

	row := ports.Row{}
	for k, v := range key {
		row[k] = v
	}
	for k, v := range patch {
		row[k] = v
	}
	if _, err := r.store.Insert(ctx, TablePerformance, row); err != nil {
		return fmt.Errorf("failed to insert performance: %w", err)
	}
	return nil
}

// ListSeries returns a platform's daily series ordered by date
func (r *PerformanceRepository) ListSeries(ctx context.Context, userID string, platform domain.Platform) ([]domain.PerformancePoint, error) {
	rows, err := r.store.Select(ctx, TablePerformance, ports.Filter{"userId": userID, "platformName": string(platform)})
	if err != nil {
		return nil, fmt.Errorf("failed to list performance: %w", err)
	}

	series := make([]domain.PerformancePoint, 0, len(rows))
	for _, row := range rows {
		var doc entity.PerformanceDoc
		if err := entity.DecodeRow(row, &doc); err != nil {
			return nil, err
		}
		p, err := doc.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("failed to parse performance date %q: %w", doc.Date, err)
		}
		series = append(series, p)
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}

// SettingsRepository persists per-user attribution settings
type SettingsRepository struct {
	store ports.DataStore
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(store ports.DataStore) *SettingsRepository {
	return &SettingsRepository{store: store}
}

// Get returns the user's settings; nil when none were saved
func (r *SettingsRepository) Get(ctx context.Context, userID string) (*domain.AttributionSettings, error) {
	rows, err := r.store.Select(ctx, TableSettings, ports.Filter{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to get attribution settings: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var doc entity.SettingsDoc
	if err := entity.DecodeRow(rows[0], &doc); err != nil {
		return nil, err
	}
	return doc.ToDomain(), nil
}

// Save upserts the user's settings
func (r *SettingsRepository) Save(ctx context.Context, settings *domain.AttributionSettings) error {
	doc := entity.SettingsDocFromDomain(settings)
	doc.UpdatedAt = time.Now().UTC()

	existing, err := r.store.Select(ctx, TableSettings, ports.Filter{"userId": settings.UserID})
	if err != nil {
		return fmt.Errorf("failed to get attribution settings: %w", err)
	}

	row, err := entity.EncodeDoc(doc)
	if err != nil {
		return err
	}

	if len(existing) > 0 {
		delete(row, "_id")
		if _, err := r.store.Update(ctx, TableSettings, row, ports.Filter{"userId": settings.UserID}); err != nil {
			return fmt.Errorf("failed to update attribution settings: %w", err)
		}
		return nil
	}

	if _, err := r.store.Insert(ctx, TableSettings, row); err != nil {
		return fmt.Errorf("failed to insert attribution settings: %w", err)
	}
	return nil
}
