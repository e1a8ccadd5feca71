package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
)

// maxResponseSize is the maximum allowed response size from platform APIs (10MB)
const maxResponseSize = 10 * 1024 * 1024

// ShopifyAdapter reads the product catalog and writes result metafields
// through the Shopify Admin GraphQL API. One adapter serves one shop.
type ShopifyAdapter struct {
	config     *ShopifyConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// ShopifyAdapterOption is a functional option for ShopifyAdapter
type ShopifyAdapterOption func(*ShopifyAdapter)

// WithShopifyLogger sets the adapter logger
func WithShopifyLogger(logger *zap.Logger) ShopifyAdapterOption {
	return func(a *ShopifyAdapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithShopifyHTTPClient overrides the HTTP client
func WithShopifyHTTPClient(client *http.Client) ShopifyAdapterOption {
	return func(a *ShopifyAdapter) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// NewShopifyAdapter creates a new Shopify adapter with the given configuration
func NewShopifyAdapter(config *ShopifyConfig, opts ...ShopifyAdapterOption) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &ShopifyAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// ShopDomain returns the shop this adapter is bound to
func (a *ShopifyAdapter) ShopDomain() string {
	return a.config.ShopDomain
}

// ---------------------------------------------------------------------------
// Catalog Operations
// ---------------------------------------------------------------------------

// FetchPage returns one page of products. With a filter tag the page is
// restricted to tagged products, newest first.
func (a *ShopifyAdapter) FetchPage(ctx context.Context, req integration.PageRequest) (*integration.CatalogPage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	variables := map[string]any{
		"first":     req.PageSize,
		"namespace": a.config.MetafieldNamespace,
	}
	if req.Cursor != "" {
		variables["after"] = req.Cursor
	}
	if req.FilterTag != "" {
		variables["query"] = fmt.Sprintf("tag:%q", req.FilterTag)
		variables["sortKey"] = "CREATED_AT"
		variables["reverse"] = true
	}

	var data ShopifyProductsData
	if err := a.doGraphQL(ctx, shopifyProductsQuery, variables, &data); err != nil {
		return nil, fmt.Errorf("%w: %w", integration.ErrUpstreamFetchFailure, err)
	}

	page := &integration.CatalogPage{
		Items: make([]integration.ProductRecord, 0, len(data.Products.Edges)),
	}
	for _, edge := range data.Products.Edges {
		product := convertShopifyProduct(&edge.Node)
		if req.RequireImages && !product.HasImages() {
			continue
		}
		page.Items = append(page.Items, product)
	}
	if data.Products.PageInfo.HasNextPage && data.Products.PageInfo.EndCursor != nil {
		page.NextCursor = *data.Products.PageInfo.EndCursor
	}

	logger.Correlated(ctx, a.logger).Debug("Fetched catalog page",
		zap.String("shop", a.config.ShopDomain),
		zap.Int("fetched", len(data.Products.Edges)),
		zap.Int("items", len(page.Items)),
		zap.Bool("has_more", page.HasMore()),
	)
	return page, nil
}

// WriteField writes a single metafield on the product
func (a *ShopifyAdapter) WriteField(ctx context.Context, sourceID, key, value string) error {
	variables := map[string]any{
		"input": map[string]any{
			"id": sourceID,
			"metafields": []shopifyMetafieldInput{{
				Namespace: a.config.MetafieldNamespace,
				Key:       key,
				Value:     value,
				Type:      MetafieldTypeSingleLine,
			}},
		},
	}

	var data ShopifyProductUpdateData
	if err := a.doGraphQL(ctx, shopifyProductUpdateMutation, variables, &data); err != nil {
		return fmt.Errorf("%w: %s: %w", integration.ErrWritebackFailure, key, err)
	}
	if len(data.ProductUpdate.UserErrors) > 0 {
		msgs := make([]string, 0, len(data.ProductUpdate.UserErrors))
		for _, ue := range data.ProductUpdate.UserErrors {
			msgs = append(msgs, ue.Message)
		}
		return fmt.Errorf("%w: %s: %s", integration.ErrWritebackFailure, key, strings.Join(msgs, ", "))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helper Methods
// ---------------------------------------------------------------------------

// doGraphQL executes a GraphQL call and decodes data into out
func (a *ShopifyAdapter) doGraphQL(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(shopifyGraphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("shopify: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.GraphQLEndpoint(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", a.config.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("shopify: failed to read response: %w", err)
	}

	if err := classifyHTTPStatus(resp.StatusCode); err != nil {
		return err
	}

	var envelope shopifyGraphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPlatformInvalidResponse, err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("%w: %s", integration.ErrPlatformRequestFailed, envelope.Errors[0].Message)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("%w: empty data", integration.ErrPlatformInvalidResponse)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPlatformInvalidResponse, err)
	}
	return nil
}

// classifyHTTPStatus maps HTTP error statuses to platform errors
func classifyHTTPStatus(status int) error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformAuthFailed, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformRateLimited, status)
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformUnavailable, status)
	default:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformRequestFailed, status)
	}
}

// convertShopifyProduct converts a product node to a ProductRecord
func convertShopifyProduct(node *ShopifyProduct) integration.ProductRecord {
	record := integration.ProductRecord{
		SourceID:     node.ID,
		Handle:       node.Handle,
		Title:        node.Title,
		Tags:         node.Tags,
		Images:       make([]integration.ProductImage, 0, len(node.Images.Edges)),
		CustomFields: make(integration.CustomFields, len(node.Metafields.Edges)),
	}
	for _, e := range node.Images.Edges {
		img := integration.ProductImage{URL: e.Node.OriginalSrc}
		if e.Node.AltText != nil {
			img.DescriptiveTag = *e.Node.AltText
		}
		record.Images = append(record.Images, img)
	}
	for _, e := range node.Metafields.Edges {
		record.CustomFields.Set(e.Node.Key, e.Node.Value)
	}
	if len(node.Variants.Edges) > 0 {
		record.SKU = node.Variants.Edges[0].Node.SKU
	}
	return record
}

// Ensure ShopifyAdapter implements integration.Source
var _ integration.Source = (*ShopifyAdapter)(nil)
