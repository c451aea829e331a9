package entity

import (
	"time"

	"archie-core-attribution-layer/internal/domain"
)

// ConnectionDoc represents a platform connection row
type ConnectionDoc struct {
	ID           string             `bson:"_id,omitempty"`
	UserID       string             `bson:"userId"`
	PlatformName string             `bson:"platformName"`
	Credentials  domain.Credentials `bson:"credentials"`
	Status       string             `bson:"status"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

// ToDomain converts the document to a domain entity
func (d *ConnectionDoc) ToDomain() domain.PlatformConnection {
	return domain.PlatformConnection{
		ID:           d.ID,
		UserID:       d.UserID,
		PlatformName: domain.Platform(d.PlatformName),
		Credentials:  d.Credentials,
		Status:       domain.ConnectionStatus(d.Status),
		CreatedAt:    d.CreatedAt,
	}
}

// ConnectionDocFromDomain converts a domain entity to a document
func ConnectionDocFromDomain(c *domain.PlatformConnection) *ConnectionDoc {
	return &ConnectionDoc{
		ID:           c.ID,
		UserID:       c.UserID,
		PlatformName: string(c.PlatformName),
		Credentials:  c.Credentials,
		Status:       string(c.Status),
		CreatedAt:    c.CreatedAt,
	}
}
