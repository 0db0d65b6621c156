package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/regfetch/regfetch/internal/scrape"
)

func TestRegistryConfigResolution(t *testing.T) {
	t.Parallel()

	r := NewRegistry(map[string]scrape.ResourceConfig{
		"example.com": {MinDelay: time.Second, MaxConcurrency: 4},
		WildcardKey:   {MinDelay: 2 * time.Second, MaxConcurrency: 2},
	}, 0, zap.NewNop())

	exact := r.ConfigFor("example.com")
	require.Equal(t, time.Second, exact.MinDelay)
	require.Equal(t, 4, exact.MaxConcurrency)

	wildcard := r.ConfigFor("other.org")
	require.Equal(t, 2*time.Second, wildcard.MinDelay)
	require.Equal(t, 2, wildcard.MaxConcurrency)
}

func TestRegistryFallbackWithoutWildcard(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, 0, zap.NewNop())
	cfg := r.ConfigFor("unknown.example")
	require.Equal(t, scrape.FallbackResourceConfig(), cfg)
}

func TestRegistryForReturnsSameThrottle(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, 0, zap.NewNop())
	a := r.For("example.com", 0)
	b := r.For("example.com", 0)
	require.Same(t, a, b)
	require.NotSame(t, a, r.For("other.org", 0))
}

func TestRegistryDelayFloorOnCreation(t *testing.T) {
	t.Parallel()

	r := NewRegistry(map[string]scrape.ResourceConfig{
		"example.com": {MinDelay: time.Second, MaxConcurrency: 1},
	}, 0, zap.NewNop())

	th := r.For("example.com", 5*time.Second)
	require.Equal(t, 5*time.Second, th.minDelay)

	// A lower floor on a later call cannot shrink the existing throttle.
	require.Equal(t, 5*time.Second, r.For("example.com", 0).minDelay)
}

func TestRegistryDelayFloorBelowConfigIgnored(t *testing.T) {
	t.Parallel()

	r := NewRegistry(map[string]scrape.ResourceConfig{
		"example.com": {MinDelay: 3 * time.Second, MaxConcurrency: 1},
	}, 0, zap.NewNop())

	require.Equal(t, 3*time.Second, r.For("example.com", time.Second).minDelay)
}

func TestRegistryConfigureDoesNotTouchExistingThrottle(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, 0, zap.NewNop())
	th := r.For("example.com", 0)

	r.Configure("example.com", scrape.ResourceConfig{MinDelay: time.Minute, MaxConcurrency: 9})
	require.Same(t, th, r.For("example.com", 0))
	require.Equal(t, time.Minute, r.ConfigFor("example.com").MinDelay)
}

func TestRegistryGlobalCeiling(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil, 2, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, r.AcquireGlobal(ctx))
	require.NoError(t, r.AcquireGlobal(ctx))

	blocked, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, r.AcquireGlobal(blocked))

	r.ReleaseGlobal()
	require.NoError(t, r.AcquireGlobal(ctx))
	r.ReleaseGlobal()
	r.ReleaseGlobal()
}
