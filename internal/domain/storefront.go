package domain

import (
	"fmt"
	"strings"
	"time"
)

// StorefrontStore is a connected e-commerce shop. TrackingID is minted once
// and never changes afterwards.
type StorefrontStore struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ShopDomain  string    `json:"shop_domain"`
	AccessToken string    `json:"-"`
	TrackingID  string    `json:"tracking_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NormalizeShopDomain lower-cases the domain and appends .myshopify.com to bare shop names
func NormalizeShopDomain(shop string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(shop))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimSuffix(d, "/")
	if d == "" {
		return "", NewError(KindInvalidInput, "normalize shop domain", fmt.Errorf("shop domain is required"))
	}
	if strings.ContainsAny(d, "/ ?#") {
		return "", NewError(KindInvalidInput, "normalize shop domain", fmt.Errorf("invalid shop domain %q", shop))
	}
	if !strings.Contains(d, ".") {
		d += ".myshopify.com"
	}
	return d, nil
}
