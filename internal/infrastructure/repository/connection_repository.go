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

// ConnectionRepository persists platform connections through the generic data store
type ConnectionRepository struct {
	store ports.DataStore
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(store ports.DataStore) *ConnectionRepository {
	return &ConnectionRepository{store: store}
}

// Insert creates a connection row and returns it with its store-assigned id
func (r *ConnectionRepository) Insert(ctx context.Context, conn *domain.PlatformConnection) (*domain.PlatformConnection, error) {
	doc := entity.ConnectionDocFromDomain(conn)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	row, err := entity.EncodeDoc(doc)
	if err != nil {
		return nil, err
	}
	stored, err := r.store.Insert(ctx, TableConnections, row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert platform connection: %w", err)
	}

	var out entity.ConnectionDoc
	if err := entity.DecodeRow(stored, &out); err != nil {
		return nil, err
	}
	created := out.ToDomain()
	return &created, nil
}

// ListByUser returns every connection row of a user, newest first
func (r *ConnectionRepository) ListByUser(ctx context.Context, userID string) ([]domain.PlatformConnection, error) {
	return r.list(ctx, ports.Filter{"userId": userID})
}

// ListActive returns the active rows for one (user, platform) pair, newest first
func (r *ConnectionRepository) ListActive(ctx context.Context, userID string, platform domain.Platform) ([]domain.PlatformConnection, error) {
	return r.list(ctx, ports.Filter{
		"userId":       userID,
		"platformName": string(platform),
		"status":       string(domain.ConnectionActive),
	})
}

// Revoke marks one active connection as revoked. Revoked rows are kept for history.
func (r *ConnectionRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.store.Update(ctx, TableConnections,
		ports.Row{"status": string(domain.ConnectionRevoked)},
		ports.Filter{"_id": id, "status": string(domain.ConnectionActive)},
	)
	if err != nil {
		return fmt.Errorf("failed to revoke platform connection: %w", err)
	}
	return nil
}

// Delete hard-deletes a connection row
func (r *ConnectionRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, TableConnections, ports.Filter{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete platform connection: %w", err)
	}
	return nil
}

func (r *ConnectionRepository) list(ctx context.Context, filters ports.Filter) ([]domain.PlatformConnection, error) {
	rows, err := r.store.Select(ctx, TableConnections, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list platform connections: %w", err)
	}

	conns := make([]domain.PlatformConnection, 0, len(rows))
	for _, row := range rows {
		var doc entity.ConnectionDoc
		if err := entity.DecodeRow(row, &doc); err != nil {
			return nil, err
		}
		conns = append(conns, doc.ToDomain())
	}

	sort.SliceStable(conns, func(i, j int) bool {
		return conns[i].CreatedAt.After(conns[j].CreatedAt)
	})
	return conns, nil
}
