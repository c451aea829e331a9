package shopify

import (
	"context"
	"fmt"
	"net/http"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// MainThemeRole is the role of the theme published on the storefront
const MainThemeRole = "main"

// ThemeClient talks to the storefront theme asset API
type ThemeClient struct {
	app        goshopify.App
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewThemeClient creates a new theme asset adapter
func NewThemeClient(apiKey, apiSecret string, logger zerolog.Logger) *ThemeClient {
	return NewThemeClientWithHTTPClient(apiKey, apiSecret, nil, logger)
}

// NewThemeClientWithHTTPClient creates an adapter that sends requests through httpClient
func NewThemeClientWithHTTPClient(apiKey, apiSecret string, httpClient *http.Client, logger zerolog.Logger) *ThemeClient {
	return &ThemeClient{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		httpClient: httpClient,
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client authenticated as the store
func (c *ThemeClient) createClient(shopDomain, accessToken string) (*goshopify.Client, error) {
	var opts []goshopify.Option
	if c.httpClient != nil {
		opts = append(opts, goshopify.WithHTTPClient(c.httpClient))
	}
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// MainThemeID returns the id of the published theme
func (c *ThemeClient) MainThemeID(ctx context.Context, shopDomain, accessToken string) (uint64, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return 0, err
	}
	themes, err := client.Theme.List(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list themes: %w", err)
	}
	for _, t := range themes {
		if t.Role == MainThemeRole {
			return t.Id, nil
		}
	}
	return 0, fmt.Errorf("no published theme on %s", shopDomain)
}

// ListAssetKeys returns the key of every asset of a theme
func (c *ThemeClient) ListAssetKeys(ctx context.Context, shopDomain, accessToken string, themeID uint64) ([]string, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	assets, err := client.Asset.List(ctx, themeID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list theme assets: %w", err)
	}
	keys := make([]string, 0, len(assets))
	for _, a := range assets {
		keys = append(keys, a.Key)
	}
	return keys, nil
}

// GetAsset returns the text value of one asset
func (c *ThemeClient) GetAsset(ctx context.Context, shopDomain, accessToken string, themeID uint64, key string) (string, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return "", err
	}
	asset, err := client.Asset.Get(ctx, themeID, key)
	if err != nil {
		return "", fmt.Errorf("failed to get theme asset %s: %w", key, err)
	}
	return asset.Value, nil
}

// PutAsset replaces the text value of one asset
func (c *ThemeClient) PutAsset(ctx context.Context, shopDomain, accessToken string, themeID uint64, key, value string) error {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	if _, err := client.Asset.Update(ctx, themeID, goshopify.Asset{Key: key, Value: value}); err != nil {
		return fmt.Errorf("failed to update theme asset %s: %w", key, err)
	}

	c.logger.Info().
		Str("shop", shopDomain).
		Uint64("themeId", themeID).
		Str("key", key).
		Msg("Theme asset updated")
	return nil
}
