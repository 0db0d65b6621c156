// Package fetcher wraps transports with gateway admission and bounded
// retry/backoff.
package fetcher

import (
	"time"
)

// RetryPolicy bounds attempts and spaces them with capped exponential
// backoff. Only transient failures consume attempts beyond the first.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// StaticRetryPolicy suits plain-HTTP transports: cheap requests, so more
// attempts with shorter spacing.
func StaticRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// DynamicRetryPolicy suits browser rendering: each attempt is costly, so
// fewer attempts spaced further apart.
func DynamicRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		BaseDelay:   3 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Backoff returns the wait before the given retry. attempt counts retries,
// starting at 1 for the wait between the first and second tries.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}
