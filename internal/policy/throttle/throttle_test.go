package throttle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/regfetch/regfetch/internal/scrape"
)

func TestResourceThrottleSpacing(t *testing.T) {
	t.Parallel()

	minDelay := 60 * time.Millisecond
	th := newResourceThrottle("example.com", scrape.ResourceConfig{
		MinDelay:       minDelay,
		MaxConcurrency: 1,
	})
	ctx := context.Background()

	require.NoError(t, th.Acquire(ctx))
	first := time.Now()
	th.Release()

	require.NoError(t, th.Acquire(ctx))
	second := time.Now()
	th.Release()

	// Jitter only adds to the gap, so the floor must hold.
	require.GreaterOrEqual(t, second.Sub(first), minDelay)
}

func TestResourceThrottleFirstAcquireImmediate(t *testing.T) {
	t.Parallel()

	th := newResourceThrottle("example.com", scrape.ResourceConfig{
		MinDelay:       time.Second,
		MaxConcurrency: 1,
	})

	start := time.Now()
	require.NoError(t, th.Acquire(context.Background()))
	defer th.Release()
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestResourceThrottleConcurrencyCap(t *testing.T) {
	t.Parallel()

	const limit = 2
	th := newResourceThrottle("example.com", scrape.ResourceConfig{
		MaxConcurrency: limit,
	})

	var inFlight, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, th.Acquire(context.Background()))
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			th.Release()
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, peak.Load(), int32(limit))
}

func TestResourceThrottleAcquireCanceledWhileFull(t *testing.T) {
	t.Parallel()

	th := newResourceThrottle("example.com", scrape.ResourceConfig{MaxConcurrency: 1})
	require.NoError(t, th.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, th.Acquire(ctx), context.DeadlineExceeded)

	// The slot held by the first acquire is still usable after release.
	th.Release()
	require.NoError(t, th.Acquire(context.Background()))
	th.Release()
}

func TestResourceThrottleAcquireCanceledDuringPacing(t *testing.T) {
	t.Parallel()

	th := newResourceThrottle("example.com", scrape.ResourceConfig{
		MinDelay:       5 * time.Second,
		MaxConcurrency: 1,
	})
	require.NoError(t, th.Acquire(context.Background()))
	th.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, th.Acquire(ctx), context.DeadlineExceeded)

	// Nothing may stay held after a failed acquire.
	select {
	case th.slots <- struct{}{}:
		<-th.slots
	default:
		t.Fatal("slot left held after canceled acquire")
	}
}
