package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"archie-core-attribution-layer/internal/domain"
	"archie-core-attribution-layer/internal/infrastructure/repository/entity"
	"archie-core-attribution-layer/internal/ports"
)

// InstallationRepository persists tracking installation attempts. Rows are append-only:
// a terminal row is never modified again.
type InstallationRepository struct {
	store ports.DataStore
}

// NewInstallationRepository creates a new installation repository
func NewInstallationRepository(store ports.DataStore) *InstallationRepository {
	return &InstallationRepository{store: store}
}

// Create inserts a new pending installation
func (r *InstallationRepository) Create(ctx context.Context, storeID string, themeID uint64) (*domain.TrackingInstallation, error) {
	now := time.Now().UTC()
	doc := entity.InstallationDocFromDomain(&domain.TrackingInstallation{
		StoreID:   storeID,
		ThemeID:   themeID,
		Status:    domain.InstallationPending,
		CreatedAt: now,
		UpdatedAt: now,
	})

	row, err := entity.EncodeDoc(doc)
	if err != nil {
		return nil, err
	}
	stored, err := r.store.Insert(ctx, TableInstallations, row)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation: %w", err)
	}
	return decodeInstallation(stored)
}

// Finalize moves a pending installation to a terminal status.
// ports.ErrNotFound means the row is missing or already terminal.
func (r *InstallationRepository) Finalize(ctx context.Context, id string, status domain.InstallationStatus, reason string) (*domain.TrackingInstallation, error) {
	if !domain.InstallationPending.CanTransition(status) {
		return nil, fmt.Errorf("invalid installation transition to %s", status)
	}

	patch := ports.Row{"status": string(status), "updatedAt": time.Now().UTC()}
	if reason != "" {
		patch["error"] = reason
	}

	row, err := r.store.Update(ctx, TableInstallations, patch, ports.Filter{
		"_id":    id,
		"status": string(domain.InstallationPending),
	})
	if errors.Is(err, ports.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to finalize installation: %w", err)
	}
	return decodeInstallation(row)
}

// GetByID retrieves an installation; nil when it does not exist
func (r *InstallationRepository) GetByID(ctx context.Context, id string) (*domain.TrackingInstallation, error) {
	rows, err := r.store.Select(ctx, TableInstallations, ports.Filter{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get installation: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return decodeInstallation(rows[0])
}

// ListByStore returns every attempt for a store, newest first
func (r *InstallationRepository) ListByStore(ctx context.Context, storeID string) ([]*domain.TrackingInstallation, error) {
	rows, err := r.store.Select(ctx, TableInstallations, ports.Filter{"storeId": storeID})
	if err != nil {
		return nil, fmt.Errorf("failed to list installations: %w", err)
	}
	out := make([]*domain.TrackingInstallation, 0, len(rows))
	for _, row := range rows {
		inst, err := decodeInstallation(row)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func decodeInstallation(row ports.Row) (*domain.TrackingInstallation, error) {
	var doc entity.InstallationDoc
	if err := entity.DecodeRow(row, &doc); err != nil {
		return nil, err
	}
	return doc.ToDomain(), nil
}
