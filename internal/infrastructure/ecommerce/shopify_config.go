package ecommerce

import (
	"errors"
	"fmt"
	"strings"
)

// ShopifyConfig holds configuration for the Shopify Admin GraphQL API
type ShopifyConfig struct {
	// ShopDomain is the myshopify.com domain of the shop
	ShopDomain string
	// AccessToken is the Admin API access token of the installed app
	AccessToken string
	// APIVersion is the Admin API version, e.g. 2024-10
	APIVersion string
	// MetafieldNamespace is the namespace holding the integration metafields
	MetafieldNamespace string
	// APIBaseURL overrides the endpoint derived from ShopDomain
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	// DefaultShopifyAPIVersion is the Admin API version used when none is configured
	DefaultShopifyAPIVersion = "2024-10"
	// DefaultMetafieldNamespace is the namespace read and written by the integration
	DefaultMetafieldNamespace = "custom"
	// MetafieldTypeSingleLine is the type of every written metafield
	MetafieldTypeSingleLine = "single_line_text_field"
)

// Errors for Shopify configuration
var (
	ErrShopifyConfigMissingShop  = errors.New("shopify: shop domain is required")
	ErrShopifyConfigMissingToken = errors.New("shopify: access token is required")
)

// NewShopifyConfig creates a new Shopify configuration with defaults
func NewShopifyConfig(shopDomain, accessToken string) *ShopifyConfig {
	return &ShopifyConfig{
		ShopDomain:         shopDomain,
		AccessToken:        accessToken,
		APIVersion:         DefaultShopifyAPIVersion,
		MetafieldNamespace: DefaultMetafieldNamespace,
		TimeoutSeconds:     30,
	}
}

// Validate validates the configuration and fills defaults
func (c *ShopifyConfig) Validate() error {
	if c.ShopDomain == "" {
		return ErrShopifyConfigMissingShop
	}
	if c.AccessToken == "" {
		return ErrShopifyConfigMissingToken
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultShopifyAPIVersion
	}
	if c.MetafieldNamespace == "" {
		c.MetafieldNamespace = DefaultMetafieldNamespace
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// GraphQLEndpoint returns the Admin GraphQL endpoint URL
func (c *ShopifyConfig) GraphQLEndpoint() string {
	if c.APIBaseURL != "" {
		return strings.TrimRight(c.APIBaseURL, "/") + "/graphql.json"
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", c.ShopDomain, c.APIVersion)
}

// WithCredentials returns a copy with non-empty overrides applied
func (c *ShopifyConfig) WithCredentials(shopDomain, accessToken string) *ShopifyConfig {
	out := *c
	if shopDomain != "" {
		out.ShopDomain = shopDomain
	}
	if accessToken != "" {
		out.AccessToken = accessToken
	}
	return &out
}
