package ecommerce

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/domain/integration"
)

// SessionFactory opens per-invocation adapters, applying caller credentials
// over the configured defaults.
type SessionFactory struct {
	shopify    ShopifyConfig
	realAuth   RealAuthConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSessionFactory creates a session factory. Validation is deferred until
// a session is opened so credentials may come from the caller.
func NewSessionFactory(shopify *ShopifyConfig, realAuth *RealAuthConfig, httpClient *http.Client, logger *zap.Logger) *SessionFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &SessionFactory{httpClient: httpClient, logger: logger}
	if shopify != nil {
		f.shopify = *shopify
	}
	if realAuth != nil {
		f.realAuth = *realAuth
	}
	return f
}

// Source opens a Shopify session for the shop in creds
func (f *SessionFactory) Source(creds integration.Credentials) (integration.Source, error) {
	cfg := f.shopify.WithCredentials(creds.ShopDomain, creds.AccessToken)
	adapter, err := NewShopifyAdapter(cfg,
		WithShopifyHTTPClient(f.httpClient),
		WithShopifyLogger(f.logger.With(zap.String("shop", cfg.ShopDomain))),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformNotConfigured, err)
	}
	return adapter, nil
}

// Destination opens a Real Authentication session
func (f *SessionFactory) Destination(creds integration.Credentials) (integration.Destination, error) {
	cfg := f.realAuth.WithAPIKey(creds.DestinationAPIKey)
	adapter, err := NewRealAuthAdapter(cfg,
		WithRealAuthHTTPClient(f.httpClient),
		WithRealAuthLogger(f.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformNotConfigured, err)
	}
	return adapter, nil
}

// Ensure SessionFactory implements integration.SessionFactory
var _ integration.SessionFactory = (*SessionFactory)(nil)
