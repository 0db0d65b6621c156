package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/regfetch/regfetch/internal/scrape"
)

// WildcardKey configures the default for resources with no exact entry.
const WildcardKey = "*"

// DefaultGlobalConcurrency caps total in-flight fetches when the operator
// does not set a ceiling.
const DefaultGlobalConcurrency = 12

// Registry owns one ResourceThrottle per resource key plus the global
// concurrency ceiling shared across every resource. Throttles are created
// lazily on first reference and live for the process lifetime.
type Registry struct {
	global *semaphore.Weighted
	logger *zap.Logger

	mu        sync.Mutex
	overrides map[string]scrape.ResourceConfig
	throttles map[string]*ResourceThrottle
}

// NewRegistry builds a Registry with the given per-resource overrides
// (exact keys plus an optional "*" wildcard) and global ceiling.
func NewRegistry(overrides map[string]scrape.ResourceConfig, globalLimit int, logger *zap.Logger) *Registry {
	if globalLimit <= 0 {
		globalLimit = DefaultGlobalConcurrency
	}
	r := &Registry{
		global:    semaphore.NewWeighted(int64(globalLimit)),
		logger:    logger,
		overrides: make(map[string]scrape.ResourceConfig, len(overrides)),
		throttles: make(map[string]*ResourceThrottle),
	}
	for key, cfg := range overrides {
		r.overrides[key] = cfg.Normalize()
	}
	return r
}

// Configure installs or replaces the configuration for a resource key.
// Has no effect on a throttle that was already created for the key.
func (r *Registry) Configure(key string, cfg scrape.ResourceConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[key] = cfg.Normalize()
}

// ConfigFor resolves the configuration for a key: exact entry, wildcard
// entry, then the hard-coded conservative fallback.
func (r *Registry) ConfigFor(key string) scrape.ResourceConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configForLocked(key)
}

func (r *Registry) configForLocked(key string) scrape.ResourceConfig {
	if cfg, ok := r.overrides[key]; ok {
		return cfg
	}
	if cfg, ok := r.overrides[WildcardKey]; ok {
		return cfg
	}
	return scrape.FallbackResourceConfig()
}

// For returns the throttle for key, creating it on first reference.
// delayFloor raises the pacing interval when the resource's crawl policy
// asks for a longer gap than configuration does; it only matters on the
// call that creates the throttle.
func (r *Registry) For(key string, delayFloor time.Duration) *ResourceThrottle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.throttles[key]; ok {
		return t
	}
	cfg := r.configForLocked(key)
	if delayFloor > cfg.MinDelay {
		cfg.MinDelay = delayFloor
	}
	t := newResourceThrottle(key, cfg)
	r.throttles[key] = t
	r.logger.Debug("resource throttle created",
		zap.String("resource", key),
		zap.Duration("min_delay", cfg.MinDelay),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
	)
	return t
}

// AcquireGlobal takes one slot of the global ceiling.
func (r *Registry) AcquireGlobal(ctx context.Context) error {
	if err := r.global.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire global slot: %w", err)
	}
	return nil
}

// ReleaseGlobal returns one slot of the global ceiling.
func (r *Registry) ReleaseGlobal() {
	r.global.Release(1)
}
