package integration

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// Source catalog ports
// ---------------------------------------------------------------------------

// PageRequest selects one page of the source catalog
type PageRequest struct {
	// Cursor is the resumption token; empty starts from the beginning
	Cursor string
	// PageSize must be positive
	PageSize int
	// FilterTag restricts the page to products carrying the tag (newest first)
	FilterTag string
	// RequireImages drops products without any image
	RequireImages bool
}

// Validate checks the request
func (r PageRequest) Validate() error {
	if r.PageSize <= 0 {
		return ErrInvalidPageSize
	}
	return nil
}

// CatalogPage is one page of product snapshots
type CatalogPage struct {
	Items []ProductRecord
	// NextCursor is empty when the end of the catalog is reached
	NextCursor string
}

// HasMore returns true if another page can be fetched
func (p *CatalogPage) HasMore() bool {
	return p.NextCursor != ""
}

// CatalogReader fetches pages of product snapshots
type CatalogReader interface {
	// FetchPage returns ErrUpstreamFetchFailure (wrapped) on transport or
	// malformed-response errors
	FetchPage(ctx context.Context, req PageRequest) (*CatalogPage, error)
}

// MetadataWriter writes a single result field onto a source item
type MetadataWriter interface {
	WriteField(ctx context.Context, sourceID, key, value string) error
}

// Source combines the source catalog capabilities of one shop session
type Source interface {
	CatalogReader
	MetadataWriter
	// ShopDomain is the storefront host used to build product links
	ShopDomain() string
}

// ---------------------------------------------------------------------------
// Destination ports
// ---------------------------------------------------------------------------

// ImageUploader uploads one image by URL and returns the destination image id
type ImageUploader interface {
	UploadImage(ctx context.Context, imageURL string) (int64, error)
}

// OrderCreator submits an order and returns its result
type OrderCreator interface {
	CreateOrder(ctx context.Context, draft OrderDraft) (*OrderResult, error)
}

// ServiceLinker attaches service ids to a created order
type ServiceLinker interface {
	LinkServices(ctx context.Context, orderID int64, serviceIDs []int64) error
}

// Destination combines the destination capabilities
type Destination interface {
	TaxonomySource
	ImageUploader
	OrderCreator
	ServiceLinker
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// Credentials identify the shop being synchronized. Empty fields fall back
// to configured values.
type Credentials struct {
	ShopDomain        string
	AccessToken       string
	DestinationAPIKey string
}

// SessionFactory opens per-invocation source and destination sessions
type SessionFactory interface {
	Source(creds Credentials) (Source, error)
	Destination(creds Credentials) (Destination, error)
}

// ---------------------------------------------------------------------------
// State ports
// ---------------------------------------------------------------------------

// SyncOutcomeRepository is the durable per-item outcome store
type SyncOutcomeRepository interface {
	// Upsert creates or overwrites the single row for outcome.SourceID
	Upsert(ctx context.Context, outcome *SyncOutcome) error
	// FindOne returns ErrOutcomeNotFound when no row exists
	FindOne(ctx context.Context, sourceID string) (*SyncOutcome, error)
	// List returns outcomes ordered by title and the total count
	List(ctx context.Context, filter OutcomeFilter) ([]SyncOutcome, int64, error)
	// Delete removes the row so the item is retried on the next batch
	Delete(ctx context.Context, sourceID string) error
}

// ItemLocker guards the stage sequence of one item across invocations
type ItemLocker interface {
	// Acquire returns a token and true when the lock was taken
	Acquire(ctx context.Context, sourceID string, ttl time.Duration) (string, bool, error)
	// Release frees the lock if it is still held with token
	Release(ctx context.Context, sourceID, token string) error
}

// Pacer throttles calls against the destination
type Pacer interface {
	// Wait blocks before each non-skipped item
	Wait(ctx context.Context) error
	// PageCooldown blocks after every page-size worth of examined items
	PageCooldown(ctx context.Context) error
}
