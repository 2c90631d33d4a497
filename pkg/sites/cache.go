package sites

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/teamsites/pkg/observability"
)

// RenderCache holds rendered public pages for a short TTL. Concurrent misses
// for the same key share one render.
type RenderCache struct {
	lru     *expirable.LRU[string, string]
	group   singleflight.Group
	metrics *observability.Metrics
}

// NewRenderCache creates a cache of at most size pages. A size of zero or
// less disables caching; every lookup renders.
func NewRenderCache(size int, ttl time.Duration, metrics *observability.Metrics) *RenderCache {
	c := &RenderCache{metrics: metrics}
	if size > 0 {
		c.lru = expirable.NewLRU[string, string](size, nil, ttl)
	}
	return c
}

func subdomainKey(subdomain string) string { return "sub:" + strings.ToLower(subdomain) }
func idKey(id string) string               { return "id:" + id }

// Get returns the cached page for key or renders it with load. The shared
// render outlives the caller that started it, since other callers may be
// waiting on it.
func (c *RenderCache) Get(ctx context.Context, key string, load func(context.Context) (string, error)) (string, error) {
	if c.lru != nil {
		if html, ok := c.lru.Get(key); ok {
			c.observe("hit")
			return html, nil
		}
	}
	c.observe("miss")

	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		html, err := load(shared)
		if err != nil {
			return "", err
		}
		if c.lru != nil {
			c.lru.Add(key, html)
		}
		return html, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops every cached page of site
func (c *RenderCache) Invalidate(site *Site) {
	if c.lru == nil || site == nil {
		return
	}
	c.lru.Remove(subdomainKey(site.Subdomain))
	c.lru.Remove(idKey(site.ID))
}

// Len returns the number of cached pages
func (c *RenderCache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

func (c *RenderCache) observe(result string) {
	if c.metrics != nil {
		c.metrics.RenderCacheTotal.WithLabelValues(result).Inc()
	}
}
