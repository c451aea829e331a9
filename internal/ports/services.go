package ports

import (
	"context"

	"archie-core-attribution-layer/internal/domain"
)

// TrackingIDGenerator mints globally unique tracking ids for storefronts
type TrackingIDGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// Locker hands out advisory locks keyed by an arbitrary string
type Locker interface {
	// Acquire blocks until the lock for key is held or fails; the returned
	// function releases it
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// InstallationEvents receives terminal installation statuses
type InstallationEvents interface {
	Publish(event *domain.InstallationEvent)
}

// EncryptionService encrypts secrets before they reach the data store
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
