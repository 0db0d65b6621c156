package static

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/regfetch/regfetch/internal/scrape"
)

func TestTransportFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	t.Cleanup(srv.Close)

	tr := New(Config{UserAgent: "test-agent/1.0"})
	out, err := tr.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, out.StatusCode)
	require.Equal(t, "text/html", out.ContentType)
	require.Contains(t, string(out.Body), "hello")
	require.Greater(t, out.Duration, time.Duration(0))
}

func TestTransportFetchSameURLTwice(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("<html/>"))
	}))
	t.Cleanup(srv.Close)

	tr := New(Config{})
	_, err := tr.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	_, err = tr.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, 2, hits)
}

func TestTransportServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	tr := New(Config{})
	_, err := tr.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	require.True(t, scrape.IsTransient(err))
}

func TestTransportUnreachableIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tr := New(Config{Timeout: 2 * time.Second})
	_, err := tr.Fetch(context.Background(), url)
	require.Error(t, err)
	require.True(t, scrape.IsTransient(err))
}

func TestContentTypeOf(t *testing.T) {
	t.Parallel()

	h := http.Header{"Content-Type": []string{"application/pdf; version=1.7"}}
	require.Equal(t, "application/pdf", contentTypeOf(&h))
	require.Equal(t, "", contentTypeOf(nil))
	require.Equal(t, "", contentTypeOf(&http.Header{}))
}
