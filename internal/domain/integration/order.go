package integration

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// idempotencyNamespace scopes order idempotency keys derived from source ids
var idempotencyNamespace = uuid.MustParse("6f1c8a52-3e0b-4c4e-9a55-0d7b2f6c9e11")

// DefaultDocumentationName is the documentation name sent with every order
const DefaultDocumentationName = "RA"

// UntitledProduct replaces an empty product title on the order
const UntitledProduct = "Untitled"

// ---------------------------------------------------------------------------
// Order Draft
// ---------------------------------------------------------------------------

// OrderDraft is the destination order payload
type OrderDraft struct {
	Email             string
	Title             string
	BrandID           int64
	CategoryID        int64
	DocumentationName string
	WebLink           string
	Note              string
	SerialNumber      string
	SKU               string
	Images            []AssignedImage
	// IdempotencyKey is stable per source item
	IdempotencyKey string
}

// OrderDefaults carries the configured values that complete an order draft
type OrderDefaults struct {
	ContactEmail      string
	DocumentationName string
	ShopDomain        string
	FallbackBrandID   int64
}

// BuildOrderDraft assembles the order payload for a product
func BuildOrderDraft(p *ProductRecord, md ItemMetadata, category *TaxonomyCategory, images []AssignedImage, d OrderDefaults) OrderDraft {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = UntitledProduct
	}
	docName := d.DocumentationName
	if docName == "" {
		docName = DefaultDocumentationName
	}
	fallback := d.FallbackBrandID
	if fallback == 0 {
		fallback = DefaultBrandID
	}

	return OrderDraft{
		Email:             d.ContactEmail,
		Title:             title,
		BrandID:           category.ResolveBrandID(md.Brand, fallback),
		CategoryID:        category.ID,
		DocumentationName: docName,
		WebLink:           ProductWebLink(d.ShopDomain, p.Handle),
		Note:              md.Note,
		SerialNumber:      md.SerialNumber,
		SKU:               p.SKU,
		Images:            images,
		IdempotencyKey:    IdempotencyKey(p.SourceID),
	}
}

// ProductWebLink returns the storefront URL of the product
func ProductWebLink(shopDomain, handle string) string {
	return fmt.Sprintf("https://%s/products/%s", shopDomain, handle)
}

// IdempotencyKey derives a deterministic key from the source id
func IdempotencyKey(sourceID string) string {
	return uuid.NewSHA1(idempotencyNamespace, []byte(sourceID)).String()
}

// ---------------------------------------------------------------------------
// Order Result and Writeback
// ---------------------------------------------------------------------------

// OrderResult is what the destination returns for a created order
type OrderResult struct {
	ID                int64
	StatusDescription string
	Note              string
	SerialNumber      string
	Link              string
}

// IDString returns the order id as persisted on outcomes and metafields
func (r *OrderResult) IDString() string {
	return strconv.FormatInt(r.ID, 10)
}

// MetadataField is one key/value written back to the source item
type MetadataField struct {
	Key   string
	Value string
}

// Writeback keys (without prefix)
const (
	WritebackKeyOrderID        = "order_id"
	WritebackKeyProgress       = "progress"
	WritebackKeyUploadStatus   = "uploadstatus"
	WritebackKeyAuthStatus     = "authenticationstatus"
	WritebackKeyNote           = "note"
	WritebackKeySerialNumber   = "serialnumber"
	WritebackKeyOrderLink      = "order_link"
	WritebackProgressCompleted = "Completed"
	WritebackUploadUploaded    = "Uploaded"
)

// WritebackFields returns the ordered result fields for the source item.
// The order link falls back to {dashboardURL}/orders/{id}.
func WritebackFields(r *OrderResult, prefix, dashboardURL string) []MetadataField {
	if prefix == "" {
		prefix = DefaultMetadataPrefix
	}
	link := r.Link
	if link == "" && dashboardURL != "" {
		link = fmt.Sprintf("%s/orders/%d", strings.TrimRight(dashboardURL, "/"), r.ID)
	}

	return []MetadataField{
		{Key: prefix + WritebackKeyOrderID, Value: r.IDString()},
		{Key: prefix + WritebackKeyProgress, Value: WritebackProgressCompleted},
		{Key: prefix + WritebackKeyUploadStatus, Value: WritebackUploadUploaded},
		{Key: prefix + WritebackKeyAuthStatus, Value: r.StatusDescription},
		{Key: prefix + WritebackKeyNote, Value: r.Note},
		{Key: prefix + WritebackKeySerialNumber, Value: r.SerialNumber},
		{Key: prefix + WritebackKeyOrderLink, Value: link},
	}
}
