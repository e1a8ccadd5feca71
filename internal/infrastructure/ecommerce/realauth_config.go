package ecommerce

import (
	"errors"
	"strings"
)

// RealAuthConfig holds configuration for the Real Authentication customer API
type RealAuthConfig struct {
	// APIBaseURL is the customer API base URL
	APIBaseURL string
	// APIKey is the bearer token
	APIKey string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// MaxImageBytes bounds the size of a fetched source image
	MaxImageBytes int64
}

const (
	// RealAuthProductionAPIURL is the production customer API endpoint
	RealAuthProductionAPIURL = "https://customer-api.realauthentication.com"
	// defaultMaxImageBytes is 20MB
	defaultMaxImageBytes = 20 * 1024 * 1024
)

// ErrRealAuthConfigMissingAPIKey is returned when no API key is configured
var ErrRealAuthConfigMissingAPIKey = errors.New("realauth: api key is required")

// NewRealAuthConfig creates a new configuration with defaults
func NewRealAuthConfig(apiKey string) *RealAuthConfig {
	return &RealAuthConfig{
		APIBaseURL:     RealAuthProductionAPIURL,
		APIKey:         apiKey,
		TimeoutSeconds: 30,
		MaxImageBytes:  defaultMaxImageBytes,
	}
}

// Validate validates the configuration and fills defaults
func (c *RealAuthConfig) Validate() error {
	if c.APIKey == "" {
		return ErrRealAuthConfigMissingAPIKey
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = RealAuthProductionAPIURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = defaultMaxImageBytes
	}
	return nil
}

// WithAPIKey returns a copy using apiKey when it is non-empty
func (c *RealAuthConfig) WithAPIKey(apiKey string) *RealAuthConfig {
	out := *c
	if apiKey != "" {
		out.APIKey = apiKey
	}
	return &out
}
