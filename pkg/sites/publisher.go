package sites

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/teamsites/pkg/observability"
)

// ObjectWriter stores published pages. *storage.ObjectStore implements it.
type ObjectWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Publisher uploads rendered pages to object storage and records each upload
type Publisher struct {
	objects ObjectWriter
	store   *Store
	pages   *Pages
	prefix  string
	metrics *observability.Metrics
	logger  *observability.Logger
	now     func() time.Time
}

// NewPublisher creates a publisher writing under prefix, e.g. "sites/".
// A nil objects writer yields a publisher that always returns
// ErrPublishingDisabled.
func NewPublisher(objects ObjectWriter, store *Store, pages *Pages, prefix string, metrics *observability.Metrics, logger *observability.Logger) *Publisher {
	return &Publisher{
		objects: objects,
		store:   store,
		pages:   pages,
		prefix:  prefix,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether an object store is configured
func (p *Publisher) Enabled() bool {
	return p != nil && p.objects != nil
}

// ObjectKey returns the key a site's page is published under
func (p *Publisher) ObjectKey(site *Site) string {
	return p.prefix + strings.ToLower(site.Subdomain) + "/index.html"
}

// Publish renders site and uploads it as <prefix><subdomain>/index.html
func (p *Publisher) Publish(ctx context.Context, site *Site) (*Publication, error) {
	if !p.Enabled() {
		return nil, ErrPublishingDisabled
	}

	html, err := p.pages.Build(ctx, site)
	if err != nil {
		p.observe("error")
		return nil, err
	}

	key := p.ObjectKey(site)
	checksum, err := p.objects.Put(ctx, key, []byte(html), "text/html; charset=utf-8")
	if err != nil {
		p.observe("error")
		return nil, fmt.Errorf("failed to publish site %s: %w", site.ID, err)
	}

	pub := &Publication{
		SiteID:      site.ID,
		ObjectKey:   key,
		Checksum:    checksum,
		PublishedAt: p.now(),
	}
	if err := p.store.RecordPublication(ctx, pub); err != nil {
		p.observe("error")
		return nil, err
	}

	p.observe("ok")
	return pub, nil
}

// Unpublish removes a site's published page. Missing publications are ignored.
func (p *Publisher) Unpublish(ctx context.Context, site *Site) error {
	if !p.Enabled() {
		return nil
	}
	return p.objects.Delete(ctx, p.ObjectKey(site))
}

// RepublishAll publishes every site that was published before. It keeps
// going past individual failures and returns how many sites succeeded and
// how many failed.
func (p *Publisher) RepublishAll(ctx context.Context) (published, failed int, err error) {
	if !p.Enabled() {
		return 0, 0, ErrPublishingDisabled
	}

	sites, err := p.store.ListPublishedSites(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, site := range sites {
		if ctx.Err() != nil {
			return published, failed, ctx.Err()
		}
		if _, err := p.Publish(ctx, site); err != nil {
			failed++
			p.logger.WithError(err).WithField("site_id", site.ID).Warn("Republish failed")
			continue
		}
		published++
	}
	return published, failed, nil
}

func (p *Publisher) observe(status string) {
	if p.metrics != nil {
		p.metrics.PublishTotal.WithLabelValues(status).Inc()
	}
}
