package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/regfetch/regfetch/internal/scrape"
)

var testPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}

// fakeGate counts admit/release pairs and can deny admission outright.
type fakeGate struct {
	mu       sync.Mutex
	admits   int
	releases int
	denyErr  error
}

func (g *fakeGate) Admit(context.Context, string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.denyErr != nil {
		return g.denyErr
	}
	g.admits++
	return nil
}

func (g *fakeGate) Release(string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releases++
}

// flakyTransport fails the first fails calls, then succeeds.
type flakyTransport struct {
	mu    sync.Mutex
	calls int
	fails int
	err   error
}

func (f *flakyTransport) Fetch(_ context.Context, url string) (scrape.FetchOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fails {
		return scrape.FetchOutcome{}, f.err
	}
	return scrape.FetchOutcome{URL: url, StatusCode: 200, Body: []byte("payload")}, nil
}

func TestRetryingSucceedsAfterTransientFailure(t *testing.T) {
	t.Parallel()

	gate := &fakeGate{}
	transport := &flakyTransport{fails: 1, err: scrape.Transient(errors.New("connection reset"))}
	f := NewRetrying(gate, transport, testPolicy, zap.NewNop())

	out, err := f.Fetch(context.Background(), "https://example.com/page")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), out.Body)
	require.Equal(t, 2, transport.calls)
	require.Equal(t, 2, gate.admits)
	require.Equal(t, 2, gate.releases)
}

func TestRetryingExhaustsBudget(t *testing.T) {
	t.Parallel()

	gate := &fakeGate{}
	transport := &flakyTransport{fails: 100, err: scrape.Transient(errors.New("status 503"))}
	f := NewRetrying(gate, transport, testPolicy, zap.NewNop())

	_, err := f.Fetch(context.Background(), "https://example.com/page")
	require.ErrorIs(t, err, scrape.ErrFetchFailed)
	// The exhausted result is terminal; it must not still read as
	// retryable even though every attempt failed transiently.
	require.False(t, scrape.IsTransient(err))
	require.Equal(t, testPolicy.MaxAttempts, transport.calls)
	require.Equal(t, gate.admits, gate.releases)
}

func TestRetryingPolicyDenialIsTerminal(t *testing.T) {
	t.Parallel()

	gate := &fakeGate{denyErr: scrape.ErrPolicyDenied}
	transport := &flakyTransport{}
	f := NewRetrying(gate, transport, testPolicy, zap.NewNop())

	_, err := f.Fetch(context.Background(), "https://example.com/private")
	require.ErrorIs(t, err, scrape.ErrPolicyDenied)
	require.Zero(t, transport.calls)
}

func TestRetryingNonTransientIsTerminal(t *testing.T) {
	t.Parallel()

	gate := &fakeGate{}
	transport := &flakyTransport{fails: 100, err: errors.New("malformed url")}
	f := NewRetrying(gate, transport, testPolicy, zap.NewNop())

	_, err := f.Fetch(context.Background(), "https://example.com/page")
	require.Error(t, err)
	require.NotErrorIs(t, err, scrape.ErrFetchFailed)
	require.Equal(t, 1, transport.calls)
	require.Equal(t, 1, gate.admits)
	require.Equal(t, 1, gate.releases)
}

func TestRetryingCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	gate := &fakeGate{}
	transport := &flakyTransport{fails: 100, err: scrape.Transient(errors.New("timeout"))}
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Second}
	f := NewRetrying(gate, transport, policy, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, "https://example.com/page")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, transport.calls)
}

func TestNewRetryingClampsAttempts(t *testing.T) {
	t.Parallel()

	gate := &fakeGate{}
	transport := &flakyTransport{fails: 100, err: scrape.Transient(errors.New("boom"))}
	f := NewRetrying(gate, transport, RetryPolicy{MaxAttempts: 0}, zap.NewNop())

	_, err := f.Fetch(context.Background(), "https://example.com/page")
	require.ErrorIs(t, err, scrape.ErrFetchFailed)
	require.Equal(t, 1, transport.calls)
}
