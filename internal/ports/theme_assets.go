package ports

import "context"

// LayoutAssetKey is the root template of a storefront theme
const LayoutAssetKey = "layout/theme.liquid"

// ThemeAssets is the storefront theme asset API. Calls authenticate with the
// store's own access token.
type ThemeAssets interface {
	// MainThemeID returns the id of the theme currently published on the storefront
	MainThemeID(ctx context.Context, shopDomain, accessToken string) (uint64, error)

	// ListAssetKeys returns the keys of every asset of a theme
	ListAssetKeys(ctx context.Context, shopDomain, accessToken string, themeID uint64) ([]string, error)

	// GetAsset returns the value of one asset
	GetAsset(ctx context.Context, shopDomain, accessToken string, themeID uint64, key string) (string, error)

	// PutAsset replaces the value of one asset
	PutAsset(ctx context.Context, shopDomain, accessToken string, themeID uint64, key, value string) error
}
