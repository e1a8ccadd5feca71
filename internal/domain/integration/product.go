package integration

import (
	"strings"
)

// DefaultMetadataPrefix is the metafield key prefix owned by this integration
const DefaultMetadataPrefix = "rau_"

// Recognized metadata keys (without prefix)
const (
	MetadataKeyCategory     = "category"
	MetadataKeyBrand        = "brand"
	MetadataKeyServices     = "services"
	MetadataKeyNote         = "note"
	MetadataKeySerialNumber = "serialnumber"
)

// ---------------------------------------------------------------------------
// ProductRecord
// ---------------------------------------------------------------------------

// ProductRecord is a read-only snapshot of a source catalog product.
// It lives for the duration of one batch.
type ProductRecord struct {
	// SourceID is the opaque, stable source catalog identifier
	SourceID string
	// Handle is the storefront URL handle
	Handle string
	// Title is the product title
	Title string
	// Tags is the set of catalog tags
	Tags []string
	// Images is the ordered image list
	Images []ProductImage
	// CustomFields holds metafield values keyed case-insensitively
	CustomFields CustomFields
	// SKU is the first variant SKU
	SKU string
}

// ProductImage is a catalog image with its descriptive (alt) tag
type ProductImage struct {
	URL            string
	DescriptiveTag string
}

// HasImages returns true if the product has at least one image URL
func (p *ProductRecord) HasImages() bool {
	for _, img := range p.Images {
		if img.URL != "" {
			return true
		}
	}
	return false
}

// TaggedImages returns images with a non-empty descriptive tag, tags trimmed
func (p *ProductRecord) TaggedImages() []ProductImage {
	images := make([]ProductImage, 0, len(p.Images))
	for _, img := range p.Images {
		tag := strings.TrimSpace(img.DescriptiveTag)
		if tag == "" || img.URL == "" {
			continue
		}
		images = append(images, ProductImage{URL: img.URL, DescriptiveTag: tag})
	}
	return images
}

// ---------------------------------------------------------------------------
// CustomFields
// ---------------------------------------------------------------------------

// CustomFields is a case-insensitive key/value mapping of metafields
type CustomFields map[string]string

// NewCustomFields builds CustomFields from raw key/value pairs.
// Later duplicates (after case folding) overwrite earlier ones.
func NewCustomFields(raw map[string]string) CustomFields {
	fields := make(CustomFields, len(raw))
	for k, v := range raw {
		fields.Set(k, v)
	}
	return fields
}

// Set stores a value under the lowercased key
func (f CustomFields) Set(key, value string) {
	f[strings.ToLower(strings.TrimSpace(key))] = value
}

// Get returns the value for the key, ignoring case
func (f CustomFields) Get(key string) (string, bool) {
	v, ok := f[strings.ToLower(strings.TrimSpace(key))]
	return v, ok
}

// WithPrefix returns the fields whose key starts with prefix, prefix stripped
func (f CustomFields) WithPrefix(prefix string) map[string]string {
	prefix = strings.ToLower(prefix)
	out := make(map[string]string)
	for k, v := range f {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// ItemMetadata
// ---------------------------------------------------------------------------

// ItemMetadata is the typed view of the integration-owned metafields
type ItemMetadata struct {
	// Category is the taxonomy category name
	Category string
	// Brand is the brand name under the category
	Brand string
	// Services are the requested service names, in order, without blanks
	Services []string
	// Note is free text forwarded to the order
	Note string
	// SerialNumber is forwarded to the order
	SerialNumber string
	// Extra holds unrecognized prefixed keys
	Extra map[string]string
}

// ParseItemMetadata extracts the typed metadata schema from custom fields
func ParseItemMetadata(fields CustomFields, prefix string) ItemMetadata {
	if prefix == "" {
		prefix = DefaultMetadataPrefix
	}
	raw := fields.WithPrefix(prefix)

	md := ItemMetadata{
		Category:     raw[MetadataKeyCategory],
		Brand:        raw[MetadataKeyBrand],
		Services:     ParseServiceNames(raw[MetadataKeyServices]),
		Note:         raw[MetadataKeyNote],
		SerialNumber: raw[MetadataKeySerialNumber],
		Extra:        make(map[string]string),
	}

	for k, v := range raw {
		switch k {
		case MetadataKeyCategory, MetadataKeyBrand, MetadataKeyServices, MetadataKeyNote, MetadataKeySerialNumber:
		default:
			md.Extra[k] = v
		}
	}
	return md
}

// ParseServiceNames splits a comma-separated list, trimming blanks
func ParseServiceNames(value string) []string {
	names := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}
