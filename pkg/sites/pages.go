package sites

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/teamsites/pkg/content"
	"github.com/platinummonkey/teamsites/pkg/observability"
	"github.com/platinummonkey/teamsites/pkg/render"
)

// Pages builds public HTML for sites: store lookup, normalization, rendering
type Pages struct {
	store   *Store
	cache   *RenderCache
	metrics *observability.Metrics
	now     func() time.Time
}

// NewPages creates a page builder. cache and metrics may be nil.
func NewPages(store *Store, cache *RenderCache, metrics *observability.Metrics) *Pages {
	if cache == nil {
		cache = NewRenderCache(0, 0, metrics)
	}
	return &Pages{
		store:   store,
		cache:   cache,
		metrics: metrics,
		now:     time.Now,
	}
}

// Cache returns the render cache used by the builder
func (p *Pages) Cache() *RenderCache {
	return p.cache
}

// BySubdomain returns the public page of the site at subdomain
func (p *Pages) BySubdomain(ctx context.Context, subdomain string) (string, error) {
	return p.cache.Get(ctx, subdomainKey(subdomain), func(ctx context.Context) (string, error) {
		site, err := p.store.GetSiteBySubdomain(ctx, subdomain)
		if err != nil {
			return "", err
		}
		return p.Build(ctx, site)
	})
}

// ByID returns the public page of the site with the given ID
func (p *Pages) ByID(ctx context.Context, id string) (string, error) {
	return p.cache.Get(ctx, idKey(id), func(ctx context.Context) (string, error) {
		site, err := p.store.GetSite(ctx, id)
		if err != nil {
			return "", err
		}
		return p.Build(ctx, site)
	})
}

// ContentError wraps a failure to load a site's stored content
type ContentError struct {
	Err error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content load error: %v", e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// Build renders site without consulting the cache
func (p *Pages) Build(ctx context.Context, site *Site) (string, error) {
	ctx, span := observability.Tracer().Start(ctx, "sites.Build")
	defer span.End()
	span.SetAttributes(attribute.String("site.id", site.ID))

	data, err := p.store.GetContent(ctx, site.ID)
	if err != nil {
		span.RecordError(err)
		return "", &ContentError{Err: err}
	}

	start := time.Now()
	now := p.now()
	doc := content.NormalizeAt(content.Decode(data), site.Name, now)
	html := render.Render(doc, now)
	if p.metrics != nil {
		p.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	}
	return html, nil
}
