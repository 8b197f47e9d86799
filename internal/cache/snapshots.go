package cache

import (
	"github.com/onnwee/metro-map/backend/internal/metrics"
)

// RenderFunc produces the body for a view along with the city version it
// was rendered from.
type RenderFunc func() (body []byte, version uint64, err error)

// Views memoizes rendered city views per version and reports hit rates to
// Prometheus under cacheType.
type Views struct {
	cache     Cache
	cacheType string
}

// NewViews wraps c; cacheType labels the cache metrics.
func NewViews(c Cache, cacheType string) *Views {
	return &Views{cache: c, cacheType: cacheType}
}

// Get returns the cached body for view at version, rendering it on a miss.
// The render may observe a newer version than requested; the result is
// stored under the version it reports.
func (v *Views) Get(view string, version uint64, render RenderFunc) ([]byte, uint64, error) {
	if body, ok := v.cache.Get(VersionKey(view, version)); ok {
		metrics.APICacheHits.WithLabelValues(v.cacheType).Inc()
		return body, version, nil
	}
	metrics.APICacheMisses.WithLabelValues(v.cacheType).Inc()

	body, rendered, err := render()
	if err != nil {
		return nil, 0, err
	}
	v.cache.Set(VersionKey(view, rendered), body, 0)
	v.report()
	return body, rendered, nil
}

func (v *Views) report() {
	s := v.cache.Stats()
	metrics.APICacheSize.WithLabelValues(v.cacheType).Set(float64(s.Size))
	metrics.APICacheItems.WithLabelValues(v.cacheType).Set(float64(s.Items))
}
