package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/regfetch/regfetch/internal/metrics"
	"github.com/regfetch/regfetch/internal/scrape"
)

// Gate is the admit/release contract the compliance gateway provides.
type Gate interface {
	Admit(ctx context.Context, url string) error
	Release(url string)
}

// Retrying runs a transport call under the gateway's admit/release
// protocol with bounded retries. Policy denials are terminal; exhausted
// retries surface as ErrFetchFailed, never as a process-level failure.
type Retrying struct {
	gate      Gate
	transport scrape.Fetcher
	policy    RetryPolicy
	logger    *zap.Logger
}

// NewRetrying builds a Retrying fetcher around transport.
func NewRetrying(gate Gate, transport scrape.Fetcher, policy RetryPolicy, logger *zap.Logger) *Retrying {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Retrying{gate: gate, transport: transport, policy: policy, logger: logger}
}

// Fetch retrieves url, retrying transient failures within the policy's
// attempt budget.
func (f *Retrying) Fetch(ctx context.Context, url string) (scrape.FetchOutcome, error) {
	resource := scrape.ResourceKeyOf(url)

	var lastErr error
	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			metrics.ObserveRetry(resource)
			if err := f.sleep(ctx, f.policy.Backoff(attempt-1)); err != nil {
				return scrape.FetchOutcome{}, err
			}
		}

		out, err := f.attempt(ctx, url)
		if err == nil {
			metrics.ObservePage(resource, "success")
			return out, nil
		}
		if errors.Is(err, scrape.ErrPolicyDenied) {
			metrics.ObservePage(resource, "denied")
			return scrape.FetchOutcome{}, err
		}
		if !scrape.IsTransient(err) {
			metrics.ObservePage(resource, "error")
			return scrape.FetchOutcome{}, err
		}

		lastErr = err
		f.logger.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.policy.MaxAttempts),
			zap.Error(err),
		)
	}

	metrics.ObservePage(resource, "exhausted")
	// lastErr is formatted with %v, not %w: the exhausted budget is
	// terminal and must not keep classifying as transient.
	return scrape.FetchOutcome{}, fmt.Errorf("%w: %s after %d attempts: %v",
		scrape.ErrFetchFailed, url, f.policy.MaxAttempts, lastErr)
}

// attempt performs one admitted transport call. The admitted slots are
// released on every exit path, including transport panics.
func (f *Retrying) attempt(ctx context.Context, url string) (scrape.FetchOutcome, error) {
	if err := f.gate.Admit(ctx, url); err != nil {
		return scrape.FetchOutcome{}, err
	}
	defer f.gate.Release(url)
	return f.transport.Fetch(ctx, url)
}

func (f *Retrying) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
