// Package robots caches per-resource crawl policies fetched from each
// host's robots.txt. Retrieval failures install a synthetic allow-all
// policy: a broken robots endpoint must not stop an otherwise healthy
// resource from being crawled.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/regfetch/regfetch/internal/scrape"
)

const (
	fetchTimeout  = 10 * time.Second
	maxPolicySize = 1 << 20

	// minCrawlDelay floors the crawl-delay directive when one is present.
	minCrawlDelay = 500 * time.Millisecond
)

// Cache resolves and permanently caches one crawl policy per resource.
// A resolved policy is never refreshed within a process run; a resource
// that changes its live robots.txt mid-run keeps the rules seen first.
type Cache struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger

	mu       sync.RWMutex
	policies map[string]*policy
}

// policy is the cached decision data for one resource. A nil data field
// means the synthetic allow-all policy.
type policy struct {
	data       *robotstxt.RobotsData
	crawlDelay time.Duration
	fetchedAt  time.Time
}

// NewCache builds a Cache identifying itself as userAgent.
func NewCache(userAgent string, logger *zap.Logger) *Cache {
	return &Cache{
		client:    &http.Client{Timeout: fetchTimeout},
		userAgent: userAgent,
		logger:    logger,
		policies:  make(map[string]*policy),
	}
}

// Allowed reports whether the resource's crawl policy permits rawURL.
// Unparseable URLs are rejected; everything else fails open.
func (c *Cache) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	p := c.resolve(ctx, parsed)
	if p.data == nil {
		return true
	}
	group := p.data.FindGroup(c.userAgent)
	if group == nil {
		return true
	}
	return group.Test(parsed.Path)
}

// CrawlDelay returns the resource's crawl-delay directive, if its policy
// carries one. Resolves the policy on first reference like Allowed does.
func (c *Cache) CrawlDelay(ctx context.Context, rawURL string) (time.Duration, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return 0, false
	}
	p := c.resolve(ctx, parsed)
	if p.crawlDelay <= 0 {
		return 0, false
	}
	return p.crawlDelay, true
}

// resolve returns the cached policy for the URL's resource, fetching it on
// first reference. Concurrent first lookups may fetch redundantly; the
// last writer wins, which is harmless because the fetch is idempotent.
func (c *Cache) resolve(ctx context.Context, parsed *url.URL) *policy {
	key := scrape.ResourceKeyOf(parsed.String())

	c.mu.RLock()
	p, ok := c.policies[key]
	c.mu.RUnlock()
	if ok {
		return p
	}

	p = c.fetch(ctx, parsed)

	c.mu.Lock()
	c.policies[key] = p
	c.mu.Unlock()
	return p
}

func (c *Cache) fetch(ctx context.Context, parsed *url.URL) *policy {
	robotsURL := *parsed
	robotsURL.Path = path.Join("/", "robots.txt")
	robotsURL.RawQuery = ""
	robotsURL.Fragment = ""

	data, err := c.retrieve(ctx, robotsURL.String())
	if err != nil {
		c.logger.Warn("crawl policy fetch failed; failing open",
			zap.String("resource", parsed.Host),
			zap.Error(err),
		)
		return &policy{fetchedAt: time.Now()}
	}

	p := &policy{data: data, fetchedAt: time.Now()}
	if group := data.FindGroup(c.userAgent); group != nil && group.CrawlDelay > 0 {
		p.crawlDelay = group.CrawlDelay
		if p.crawlDelay < minCrawlDelay {
			p.crawlDelay = minCrawlDelay
		}
	}
	return p
}

// retrieve downloads and parses one robots.txt. Any non-200 status is an
// error here so the caller installs the allow-all policy.
func (c *Cache) retrieve(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new policy request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch policy: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close policy response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("policy status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPolicySize))
	if err != nil {
		return nil, fmt.Errorf("read policy body: %w", err)
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	return data, nil
}
