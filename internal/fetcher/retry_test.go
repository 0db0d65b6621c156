package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryPolicyBackoff(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 2 * time.Second, MaxDelay: 10 * time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{5, 10 * time.Second},
		{0, 2 * time.Second},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, p.Backoff(tc.attempt), "attempt %d", tc.attempt)
	}
}

func TestRetryPolicyBackoffNoCap(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{BaseDelay: time.Second}
	require.Equal(t, 8*time.Second, p.Backoff(4))
}

func TestDefaultPolicies(t *testing.T) {
	t.Parallel()

	static := StaticRetryPolicy()
	require.Equal(t, 3, static.MaxAttempts)
	require.Equal(t, 2*time.Second, static.BaseDelay)
	require.Equal(t, 10*time.Second, static.MaxDelay)

	dynamic := DynamicRetryPolicy()
	require.Equal(t, 2, dynamic.MaxAttempts)
	require.Equal(t, 3*time.Second, dynamic.BaseDelay)
	require.Equal(t, 30*time.Second, dynamic.MaxDelay)
}
