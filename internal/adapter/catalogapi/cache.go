package catalogapi

import (
	"context"
	"time"

	"github.com/couchcryptid/snow-phenology/internal/domain"
	"github.com/couchcryptid/snow-phenology/internal/observability"
)

// queryKey identifies one catalog query at day resolution.
type queryKey struct {
	dataset, band string
	start, end    string
}

// CachedCatalog wraps a Catalog with an in-memory LRU cache of query results.
type CachedCatalog struct {
	inner   domain.Catalog
	cache   *lruCache[queryKey, domain.Series]
	metrics *observability.Metrics
}

// NewCachedCatalog creates a cache decorator around a catalog.
func NewCachedCatalog(inner domain.Catalog, maxEntries int, metrics *observability.Metrics) *CachedCatalog {
	return &CachedCatalog{
		inner:   inner,
		cache:   newLRUCache[queryKey, domain.Series](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedCatalog) Query(ctx context.Context, dataset, band string, start, end time.Time) (domain.Series, error) {
	key := queryKey{dataset: dataset, band: band, start: start.UTC().Format(dayLayout), end: end.UTC().Format(dayLayout)}
	if s, ok := c.cache.get(key); ok {
		c.metrics.CatalogCache.WithLabelValues("hit").Inc()
		return append(domain.Series(nil), s...), nil
	}
	c.metrics.CatalogCache.WithLabelValues("miss").Inc()

	s, err := c.inner.Query(ctx, dataset, band, start, end)
	if err != nil {
		return s, err
	}
	// Only cache non-empty results so a catalog still being filled can be retried.
	if len(s) > 0 {
		c.cache.put(key, append(domain.Series(nil), s...))
	}
	return s, nil
}
