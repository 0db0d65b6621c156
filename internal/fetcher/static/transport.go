// Package static implements the plain-HTTP transport using Colly.
package static

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/regfetch/regfetch/internal/scrape"
)

const defaultTimeout = 30 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Transport implements scrape.Fetcher with a single HTTP GET per call.
// Compliance and pacing are handled upstream by the gateway, so the
// collector's own robots handling stays off.
type Transport struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Transport.
func New(cfg Config) *Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	return &Transport{cfg: cfg, baseCollector: c}
}

// Fetch executes one GET for url, following redirects. Network errors,
// timeouts, and non-2xx statuses come back as transient errors so the
// retry layer knows they are worth another attempt.
func (t *Transport) Fetch(ctx context.Context, url string) (scrape.FetchOutcome, error) {
	collector := t.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	// The clone shares visited-URL storage; retries re-request the same URL.
	collector.AllowURLRevisit = true
	if t.cfg.UserAgent != "" {
		collector.UserAgent = t.cfg.UserAgent
	}
	collector.SetRequestTimeout(t.cfg.Timeout)

	var (
		result   scrape.FetchOutcome
		fetchErr error
	)
	start := time.Now()

	collector.OnResponse(func(r *colly.Response) {
		result = scrape.FetchOutcome{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			Body:        append([]byte(nil), r.Body...),
			ContentType: contentTypeOf(r.Headers),
			Duration:    time.Since(start),
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := t.run(ctx, collector, url, &fetchErr); err != nil {
		return scrape.FetchOutcome{}, err
	}
	return result, nil
}

func (t *Transport) run(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("static fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return scrape.Transient(fmt.Errorf("static visit %s: %w", url, err))
		}
		if *fetchErr != nil {
			return scrape.Transient(fmt.Errorf("static response %s: %w", url, *fetchErr))
		}
		return nil
	}
}

func contentTypeOf(headers *http.Header) string {
	if headers == nil {
		return ""
	}
	ct := headers.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
