package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ---------------------------------------------------------------------------
// ProductRecord Tests
// ---------------------------------------------------------------------------

func TestProductRecord_Images(t *testing.T) {
	p := &ProductRecord{
		SourceID: "gid://shopify/Product/1",
		Tags:     []string{"Authenticate", "sale"},
		Images: []ProductImage{
			{URL: "https://cdn.example.com/a.jpg", DescriptiveTag: " Front "},
			{URL: "https://cdn.example.com/b.jpg", DescriptiveTag: ""},
			{URL: "", DescriptiveTag: "Back"},
			{URL: "https://cdn.example.com/c.jpg", DescriptiveTag: "Label"},
		},
	}

	t.Run("HasImages", func(t *testing.T) {
		assert.True(t, p.HasImages())
		assert.False(t, (&ProductRecord{}).HasImages())
	})

	t.Run("TaggedImages keeps only tagged images with urls", func(t *testing.T) {
		tagged := p.TaggedImages()
		assert.Equal(t, []ProductImage{
			{URL: "https://cdn.example.com/a.jpg", DescriptiveTag: "Front"},
			{URL: "https://cdn.example.com/c.jpg", DescriptiveTag: "Label"},
		}, tagged)
	})
}

// ---------------------------------------------------------------------------
// CustomFields / ItemMetadata Tests
// ---------------------------------------------------------------------------

func TestCustomFields_CaseInsensitive(t *testing.T) {
	fields := NewCustomFields(map[string]string{"RAU_Category": "Handbags"})

	v, ok := fields.Get("rau_category")
	assert.True(t, ok)
	assert.Equal(t, "Handbags", v)

	v, ok = fields.Get("RAU_CATEGORY")
	assert.True(t, ok)
	assert.Equal(t, "Handbags", v)

	_, ok = fields.Get("rau_brand")
	assert.False(t, ok)
}

func TestParseItemMetadata(t *testing.T) {
	fields := NewCustomFields(map[string]string{
		"rau_Category":     "Handbags",
		"rau_brand":        "Chanel",
		"rau_services":     "Express, , Certificate ,",
		"rau_note":         "scratch on clasp",
		"rau_serialNumber": "SN-42",
		"rau_color":        "black",
		"other_category":   "ignored",
	})

	md := ParseItemMetadata(fields, "")

	assert.Equal(t, "Handbags", md.Category)
	assert.Equal(t, "Chanel", md.Brand)
	assert.Equal(t, []string{"Express", "Certificate"}, md.Services)
	assert.Equal(t, "scratch on clasp", md.Note)
	assert.Equal(t, "SN-42", md.SerialNumber)
	assert.Equal(t, map[string]string{"color": "black"}, md.Extra)
}

func TestParseItemMetadata_CustomPrefix(t *testing.T) {
	fields := NewCustomFields(map[string]string{"x_category": "Watches", "rau_category": "Handbags"})

	md := ParseItemMetadata(fields, "X_")
	assert.Equal(t, "Watches", md.Category)
}

func TestParseServiceNames(t *testing.T) {
	assert.Empty(t, ParseServiceNames(""))
	assert.Empty(t, ParseServiceNames(" , ,"))
	assert.Equal(t, []string{"A", "B C"}, ParseServiceNames("A,  B C "))
}
