// Package policy composes the crawl-policy cache and the throttle registry
// into a single admission gate consumed by the transport layer.
package policy

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/regfetch/regfetch/internal/metrics"
	"github.com/regfetch/regfetch/internal/policy/throttle"
	"github.com/regfetch/regfetch/internal/scrape"
)

// CrawlPolicy is the slice of the robots cache the gateway needs.
type CrawlPolicy interface {
	Allowed(ctx context.Context, url string) bool
	CrawlDelay(ctx context.Context, url string) (time.Duration, bool)
}

// Gateway decides whether an outgoing request may proceed, how long it
// must wait, and how many requests to its resource may run at once.
type Gateway struct {
	cache    CrawlPolicy
	registry *throttle.Registry
	logger   *zap.Logger
}

// NewGateway builds a Gateway over the given policy cache and registry.
func NewGateway(cache CrawlPolicy, registry *throttle.Registry, logger *zap.Logger) *Gateway {
	return &Gateway{cache: cache, registry: registry, logger: logger}
}

// Admit blocks until rawURL may be fetched. The policy check runs before
// any concurrency resource is taken, so a disallowed URL never occupies a
// slot. On success the caller holds one global and one per-resource slot
// and must pair the call with Release; on error nothing stays held.
func (g *Gateway) Admit(ctx context.Context, rawURL string) error {
	if !g.cache.Allowed(ctx, rawURL) {
		metrics.ObservePolicyDecision("denied")
		g.logger.Info("admission denied by crawl policy", zap.String("url", rawURL))
		return fmt.Errorf("%s: %w", rawURL, scrape.ErrPolicyDenied)
	}
	metrics.ObservePolicyDecision("allowed")

	if err := g.registry.AcquireGlobal(ctx); err != nil {
		return err
	}

	var delayFloor time.Duration
	if d, ok := g.cache.CrawlDelay(ctx, rawURL); ok {
		delayFloor = d
	}
	key := scrape.ResourceKeyOf(rawURL)
	if err := g.registry.For(key, delayFloor).Acquire(ctx); err != nil {
		g.registry.ReleaseGlobal()
		return fmt.Errorf("admit %s: %w", rawURL, err)
	}

	metrics.IncInFlight()
	return nil
}

// Release frees the slots taken by a successful Admit for rawURL. Must be
// called exactly once per admitted request, on every exit path.
func (g *Gateway) Release(rawURL string) {
	key := scrape.ResourceKeyOf(rawURL)
	g.registry.For(key, 0).Release()
	g.registry.ReleaseGlobal()
	metrics.DecInFlight()
}

// ModeFor reports the configured fetch mode for a URL's resource.
func (g *Gateway) ModeFor(rawURL string) scrape.FetchMode {
	return g.registry.ConfigFor(scrape.ResourceKeyOf(rawURL)).Mode
}
