package integration

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultBrandID is used when the brand name is not found under the category
const DefaultBrandID int64 = 2

// ---------------------------------------------------------------------------
// Reference data
// ---------------------------------------------------------------------------

// TaxonomyCategory is a destination category with its brands and image slots
type TaxonomyCategory struct {
	ID         int64
	Name       string
	Brands     []TaxonomyBrand
	ImageSlots []ImageSlot
}

// TaxonomyBrand is a brand available under a category
type TaxonomyBrand struct {
	ID   int64
	Name string
}

// ImageSlot is a category-declared image placeholder
type ImageSlot struct {
	ID          int64
	Description string
}

// TaxonomyService is an add-on service that can be linked to an order
type TaxonomyService struct {
	ID   int64
	Name string
}

// FindBrand looks up a brand by exact name
func (c *TaxonomyCategory) FindBrand(name string) (TaxonomyBrand, bool) {
	for _, b := range c.Brands {
		if b.Name == name {
			return b, true
		}
	}
	return TaxonomyBrand{}, false
}

// ResolveBrandID returns the brand id for name, or fallback when not found
func (c *TaxonomyCategory) ResolveBrandID(name string, fallback int64) int64 {
	if b, ok := c.FindBrand(name); ok && b.ID != 0 {
		return b.ID
	}
	return fallback
}

// TaxonomySource fetches reference data from the destination
type TaxonomySource interface {
	ListCategories(ctx context.Context) ([]TaxonomyCategory, error)
	ListServices(ctx context.Context) ([]TaxonomyService, error)
}

// ---------------------------------------------------------------------------
// Taxonomy
// ---------------------------------------------------------------------------

// Taxonomy is the per-invocation reference data snapshot.
// Lookups are exact and case-sensitive.
type Taxonomy struct {
	categories      []TaxonomyCategory
	services        []TaxonomyService
	categoriesByKey map[string]int
	servicesByKey   map[string]int
}

// NewTaxonomy indexes the given reference lists. The first entry wins on duplicate names.
func NewTaxonomy(categories []TaxonomyCategory, services []TaxonomyService) *Taxonomy {
	t := &Taxonomy{
		categories:      categories,
		services:        services,
		categoriesByKey: make(map[string]int, len(categories)),
		servicesByKey:   make(map[string]int, len(services)),
	}
	for i, c := range categories {
		if _, exists := t.categoriesByKey[c.Name]; !exists {
			t.categoriesByKey[c.Name] = i
		}
	}
	for i, s := range services {
		if _, exists := t.servicesByKey[s.Name]; !exists {
			t.servicesByKey[s.Name] = i
		}
	}
	return t
}

// LoadTaxonomy fetches categories and services concurrently
func LoadTaxonomy(ctx context.Context, src TaxonomySource) (*Taxonomy, error) {
	var (
		categories []TaxonomyCategory
		services   []TaxonomyService
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = src.ListCategories(gCtx)
		if err != nil {
			return fmt.Errorf("%w: categories: %v", ErrUpstreamFetchFailure, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		services, err = src.ListServices(gCtx)
		if err != nil {
			return fmt.Errorf("%w: services: %v", ErrUpstreamFetchFailure, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewTaxonomy(categories, services), nil
}

// Categories returns all categories
func (t *Taxonomy) Categories() []TaxonomyCategory {
	return t.categories
}

// Services returns all services
func (t *Taxonomy) Services() []TaxonomyService {
	return t.services
}

// FindCategory looks up a category by exact name
func (t *Taxonomy) FindCategory(name string) (*TaxonomyCategory, bool) {
	i, ok := t.categoriesByKey[name]
	if !ok {
		return nil, false
	}
	return &t.categories[i], true
}

// FindService looks up a service by exact name
func (t *Taxonomy) FindService(name string) (TaxonomyService, bool) {
	i, ok := t.servicesByKey[name]
	if !ok {
		return TaxonomyService{}, false
	}
	return t.services[i], true
}

// ResolveServiceIDs maps names to service ids, returning unresolved names separately.
// Ids are deduplicated and keep the order of first appearance.
func (t *Taxonomy) ResolveServiceIDs(names []string) (ids []int64, unresolved []string) {
	ids = make([]int64, 0, len(names))
	seen := make(map[int64]bool, len(names))
	for _, name := range names {
		svc, ok := t.FindService(name)
		if !ok {
			unresolved = append(unresolved, name)
			continue
		}
		if seen[svc.ID] {
			continue
		}
		seen[svc.ID] = true
		ids = append(ids, svc.ID)
	}
	return ids, unresolved
}
