package harvest

import (
	"context"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/icaro1518/ml-discounts/models"
)

const catalogCacheSize = 16

// Catalog fetches and caches the ordered category list per country site.
// A harvesting session sees one immutable snapshot per site.
type Catalog struct {
	s     *Session
	cache *lru.Cache[string, []models.Category]
}

// NewCatalog builds a catalog backed by a small per-site LRU cache.
func NewCatalog(s *Session) (*Catalog, error) {
	cache, err := lru.New[string, []models.Category](catalogCacheSize)
	if err != nil {
		return nil, err
	}
	return &Catalog{s: s, cache: cache}, nil
}

// Fetch returns the top-level categories for a country site, sorted
// ascending by id for deterministic downstream ordering. Upstream failures
// propagate; there is no retry.
func (c *Catalog) Fetch(ctx context.Context, site string) ([]models.Category, error) {
	if cats, ok := c.cache.Get(site); ok {
		return cats, nil
	}

	cats, err := c.s.Client.Categories(ctx, site)
	if err != nil {
		return nil, err
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].ID < cats[j].ID })

	c.cache.Add(site, cats)
	return cats, nil
}
