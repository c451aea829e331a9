package domain

import "time"

// InstallationStatus is the state of one tracking installation attempt
type InstallationStatus string

const (
	InstallationPending   InstallationStatus = "pending"
	InstallationCompleted InstallationStatus = "completed"
	InstallationFailed    InstallationStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed
func (s InstallationStatus) IsTerminal() bool {
	return s == InstallationCompleted || s == InstallationFailed
}

// CanTransition allows pending -> completed and pending -> failed only.
// A failed attempt is retried with a new installation record.
func (s InstallationStatus) CanTransition(to InstallationStatus) bool {
	return s == InstallationPending && to.IsTerminal()
}

// TrackingInstallation records one attempt to inject the tracking snippet into a theme
type TrackingInstallation struct {
	ID        string             `json:"id"`
	StoreID   string             `json:"store_id"`
	ThemeID   uint64             `json:"theme_id"`
	Status    InstallationStatus `json:"status"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// InstallationEvent is published when an installation reaches a terminal status
type InstallationEvent struct {
	Installation TrackingInstallation `json:"installation"`
	ShopDomain   string               `json:"shop_domain,omitempty"`
}
