package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
)

// RealAuthAdapter is the destination client: taxonomy, image upload,
// order creation and service linking.
type RealAuthAdapter struct {
	config     *RealAuthConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// RealAuthAdapterOption is a functional option for RealAuthAdapter
type RealAuthAdapterOption func(*RealAuthAdapter)

// WithRealAuthLogger sets the adapter logger
func WithRealAuthLogger(logger *zap.Logger) RealAuthAdapterOption {
	return func(a *RealAuthAdapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRealAuthHTTPClient overrides the HTTP client
func WithRealAuthHTTPClient(client *http.Client) RealAuthAdapterOption {
	return func(a *RealAuthAdapter) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// NewRealAuthAdapter creates a new destination adapter
func NewRealAuthAdapter(config *RealAuthConfig, opts ...RealAuthAdapterOption) (*RealAuthAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &RealAuthAdapter{
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

// ---------------------------------------------------------------------------
// Taxonomy
// ---------------------------------------------------------------------------

// ListCategories fetches categories with their brands and image slots
func (a *RealAuthAdapter) ListCategories(ctx context.Context) ([]integration.TaxonomyCategory, error) {
	var raw []RealAuthCategory
	if err := a.doJSON(ctx, http.MethodGet, "/v2/categories", nil, nil, &raw); err != nil {
		return nil, err
	}

	categories := make([]integration.TaxonomyCategory, 0, len(raw))
	for _, c := range raw {
		cat := integration.TaxonomyCategory{
			ID:         c.ID,
			Name:       c.Name,
			Brands:     make([]integration.TaxonomyBrand, 0, len(c.Brands)),
			ImageSlots: make([]integration.ImageSlot, 0, len(c.CategoryImages)),
		}
		for _, b := range c.Brands {
			cat.Brands = append(cat.Brands, integration.TaxonomyBrand{ID: b.ID, Name: b.Name})
		}
		for _, img := range c.CategoryImages {
			cat.ImageSlots = append(cat.ImageSlots, integration.ImageSlot{ID: img.ID, Description: img.Description})
		}
		categories = append(categories, cat)
	}
	return categories, nil
}

// ListServices fetches the add-on services
func (a *RealAuthAdapter) ListServices(ctx context.Context) ([]integration.TaxonomyService, error) {
	var raw []RealAuthService
	if err := a.doJSON(ctx, http.MethodGet, "/v2/services", nil, nil, &raw); err != nil {
		return nil, err
	}

	services := make([]integration.TaxonomyService, 0, len(raw))
	for _, s := range raw {
		services = append(services, integration.TaxonomyService{ID: s.ID, Name: s.Name})
	}
	return services, nil
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

// UploadImage fetches the image from imageURL and uploads it as multipart form data
func (a *RealAuthAdapter) UploadImage(ctx context.Context, imageURL string) (int64, error) {
	content, contentType, err := a.fetchImage(ctx, imageURL)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", integration.ErrImageUploadFailure, err)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="image.jpg"`)
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", integration.ErrImageUploadFailure, err)
	}
	if _, err := part.Write(content); err != nil {
		return 0, fmt.Errorf("%w: %v", integration.ErrImageUploadFailure, err)
	}
	if err := form.Close(); err != nil {
		return 0, fmt.Errorf("%w: %v", integration.ErrImageUploadFailure, err)
	}

	headers := map[string]string{"Content-Type": form.FormDataContentType()}
	var resp RealAuthImageResponse
	if err := a.doJSON(ctx, http.MethodPost, "/v2/images", &buf, headers, &resp); err != nil {
		return 0, fmt.Errorf("%w: %w", integration.ErrImageUploadFailure, err)
	}
	if resp.ID == 0 {
		return 0, fmt.Errorf("%w: response missing id", integration.ErrImageUploadFailure)
	}
	return resp.ID, nil
}

// fetchImage downloads the source image. Images larger than MaxImageBytes
// are rejected rather than uploaded truncated.
func (a *RealAuthAdapter) fetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("realauth: failed to create image request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("realauth: failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("realauth: failed to fetch image: HTTP %d", resp.StatusCode)
	}
	// one byte past the limit tells an oversized image from one that fits
	content, err := io.ReadAll(io.LimitReader(resp.Body, a.config.MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("realauth: failed to read image: %w", err)
	}
	if int64(len(content)) > a.config.MaxImageBytes {
		return nil, "", fmt.Errorf("realauth: image exceeds %d bytes", a.config.MaxImageBytes)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}
	return content, contentType, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// CreateOrder submits the order. The draft's idempotency key is sent as
// the Idempotency-Key header.
func (a *RealAuthAdapter) CreateOrder(ctx context.Context, draft integration.OrderDraft) (*integration.OrderResult, error) {
	body := RealAuthOrderRequest{
		Email:             draft.Email,
		Title:             draft.Title,
		BrandID:           draft.BrandID,
		CategoryID:        draft.CategoryID,
		DocumentationName: draft.DocumentationName,
		WebLink:           draft.WebLink,
		Note:              draft.Note,
		SerialNumber:      draft.SerialNumber,
		SKU:               draft.SKU,
		Images:            make([]RealAuthOrderImage, 0, len(draft.Images)),
	}
	for _, img := range draft.Images {
		body.Images = append(body.Images, RealAuthOrderImage{CategoryImageID: img.SlotID, ImageID: img.ImageID})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrOrderCreationFailure, err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if draft.IdempotencyKey != "" {
		headers["Idempotency-Key"] = draft.IdempotencyKey
	}

	var resp RealAuthOrderResponse
	if err := a.doJSON(ctx, http.MethodPost, "/v2/orders", bytes.NewReader(payload), headers, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", integration.ErrOrderCreationFailure, err)
	}
	if resp.ID == 0 {
		return nil, fmt.Errorf("%w: response missing id", integration.ErrOrderCreationFailure)
	}

	return &integration.OrderResult{
		ID:                resp.ID,
		StatusDescription: resp.StatusDescription,
		Note:              resp.Note,
		SerialNumber:      resp.SerialNumber,
		Link:              resp.Link,
	}, nil
}

// LinkServices attaches services to a created order
func (a *RealAuthAdapter) LinkServices(ctx context.Context, orderID int64, serviceIDs []int64) error {
	body := RealAuthServicesRequest{Services: make([]RealAuthServiceRef, 0, len(serviceIDs))}
	for _, id := range serviceIDs {
		body.Services = append(body.Services, RealAuthServiceRef{ServiceID: id})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrServiceLinkFailure, err)
	}

	path := fmt.Sprintf("/v2/orders/%d/services", orderID)
	headers := map[string]string{"Content-Type": "application/json"}
	if err := a.doJSON(ctx, http.MethodPost, path, bytes.NewReader(payload), headers, nil); err != nil {
		return fmt.Errorf("%w: %w", integration.ErrServiceLinkFailure, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helper Methods
// ---------------------------------------------------------------------------

// doJSON performs an authenticated request and decodes a JSON response into out
func (a *RealAuthAdapter) doJSON(ctx context.Context, method, path string, body io.Reader, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, body)
	if err != nil {
		return fmt.Errorf("realauth: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("realauth: failed to read response: %w", err)
	}

	if err := classifyHTTPStatus(resp.StatusCode); err != nil {
		logger.Correlated(ctx, a.logger).Debug("Destination request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return err
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPlatformInvalidResponse, err)
	}
	return nil
}

// Ensure RealAuthAdapter implements integration.Destination
var _ integration.Destination = (*RealAuthAdapter)(nil)
