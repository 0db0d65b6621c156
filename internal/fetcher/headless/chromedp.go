// Package headless renders JavaScript-heavy pages with a headless browser.
package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"github.com/regfetch/regfetch/internal/scrape"
)

const defaultNavTimeout = 45 * time.Second

// Config controls the renderer.
type Config struct {
	MaxParallel      int
	UserAgent        string
	NavTimeout       time.Duration
	RendersPerSecond float64
}

// Renderer implements scrape.Fetcher by navigating with headless Chrome
// and returning the rendered DOM. Rendering is expensive, so beyond the
// gateway's admission control it carries its own parallelism cap and a
// renders-per-second guard.
type Renderer struct {
	cfg         Config
	limiter     chan struct{}
	qps         *rate.Limiter
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New creates a Renderer backed by chromedp.
func New(cfg Config) (*Renderer, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = defaultNavTimeout
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}
	qpsLimit := rate.Inf
	if cfg.RendersPerSecond > 0 {
		qpsLimit = rate.Limit(cfg.RendersPerSecond)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Renderer{
		cfg:         cfg,
		limiter:     limiter,
		qps:         rate.NewLimiter(qpsLimit, 1),
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the browser allocator.
func (r *Renderer) Close() {
	r.allocCancel()
}

// Fetch navigates to url and returns the fully rendered DOM. Navigation
// failures and timeouts are transient: a second, longer-spaced attempt is
// often enough for a slow page.
func (r *Renderer) Fetch(ctx context.Context, url string) (scrape.FetchOutcome, error) {
	if err := r.acquire(ctx); err != nil {
		return scrape.FetchOutcome{}, err
	}
	defer r.release()

	if err := r.qps.Wait(ctx); err != nil {
		return scrape.FetchOutcome{}, fmt.Errorf("render rate wait: %w", err)
	}

	taskCtx, taskCancel := chromedp.NewContext(r.allocator)
	defer taskCancel()
	taskCtx, cancel := context.WithTimeout(taskCtx, r.cfg.NavTimeout)
	defer cancel()

	start := time.Now()
	var html string
	actions := []chromedp.Action{
		network.Enable(),
	}
	if r.cfg.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(r.cfg.UserAgent))
	}
	actions = append(actions,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return scrape.FetchOutcome{}, fmt.Errorf("render canceled: %w", ctx.Err())
		}
		return scrape.FetchOutcome{}, scrape.Transient(fmt.Errorf("render %s: %w", url, err))
	}

	return scrape.FetchOutcome{
		URL:         url,
		StatusCode:  200,
		Body:        []byte(html),
		ContentType: "text/html",
		Duration:    time.Since(start),
	}, nil
}

func (r *Renderer) acquire(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	select {
	case r.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("render slot wait: %w", ctx.Err())
	}
}

func (r *Renderer) release() {
	if r.limiter == nil {
		return
	}
	<-r.limiter
}
