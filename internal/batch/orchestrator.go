// Package batch fans fetch-and-process tasks out across a URL list and
// collects per-task outcomes without ever aborting the batch.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/regfetch/regfetch/internal/metrics"
	"github.com/regfetch/regfetch/internal/processor"
	"github.com/regfetch/regfetch/internal/scrape"
)

// DefaultMaxConcurrent bounds batch-level task fan-out when the caller
// does not.
const DefaultMaxConcurrent = 10

// Sink receives successful task results for persistence. A sink failure
// is logged, not propagated: persistence problems must not fail a task
// that fetched and extracted cleanly.
type Sink interface {
	Persist(ctx context.Context, res scrape.TaskResult) error
}

// selector routes a URL to its processing strategy.
type selector interface {
	Select(url string, contentType string) processor.Strategy
}

// Orchestrator runs one task per URL under a batch-scoped concurrency
// limit. That limit is separate from the gateway's global ceiling: a task
// can hold a batch slot while still waiting inside the gateway's delay
// gate.
type Orchestrator struct {
	router selector
	sink   Sink
	logger *zap.Logger
}

// New builds an Orchestrator. sink may be nil.
func New(router *processor.Router, sink Sink, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{router: router, sink: sink, logger: logger}
}

// Run processes every URL and returns one TaskResult per input, in input
// order regardless of completion order. Individual failures are captured
// in their TaskResult; sibling tasks keep running.
func (o *Orchestrator) Run(ctx context.Context, urls []string, maxConcurrent int) []scrape.TaskResult {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	o.logger.Info("batch started",
		zap.Int("urls", len(urls)),
		zap.Int("max_concurrent", maxConcurrent),
	)
	start := time.Now()

	results := make([]scrape.TaskResult, len(urls))
	slots := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i, u := range urls {
		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()
			results[idx] = o.runTask(ctx, url)
		}(i, u)
	}
	wg.Wait()

	o.summarize(results, time.Since(start))
	return results
}

// runTask executes one URL end to end. Panics are converted into a failed
// result like any other per-task error.
func (o *Orchestrator) runTask(ctx context.Context, url string) (res scrape.TaskResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("task panicked", zap.String("url", url), zap.Any("panic", r))
			res = scrape.TaskResult{URL: url, Err: fmt.Errorf("task panic: %v", r)}
		}
	}()

	strategy := o.router.Select(url, "")
	o.logger.Debug("task routed",
		zap.String("url", url),
		zap.String("strategy", string(strategy.Kind())),
	)

	out, err := strategy.Process(ctx, url)
	if err != nil {
		level := o.logger.Warn
		if errors.Is(err, scrape.ErrNoContent) {
			level = o.logger.Info
		}
		level("task failed", zap.String("url", url), zap.Error(err))
		return scrape.TaskResult{
			URL:         url,
			ContentType: out.ContentType,
			Err:         err,
		}
	}

	res = scrape.TaskResult{
		URL:         url,
		Success:     true,
		Text:        out.Text,
		Metadata:    out.Metadata,
		ContentType: out.ContentType,
	}
	if o.sink != nil {
		if perr := o.sink.Persist(ctx, res); perr != nil {
			o.logger.Warn("persist failed", zap.String("url", url), zap.Error(perr))
		}
	}
	return res
}

// summarize logs batch counts and per-resource statistics. Informational
// only; nothing branches on it.
func (o *Orchestrator) summarize(results []scrape.TaskResult, elapsed time.Duration) {
	var succeeded, failed int
	type resourceStats struct{ ok, err int }
	perResource := make(map[string]*resourceStats)

	for _, res := range results {
		key := scrape.ResourceKeyOf(res.URL)
		stats, ok := perResource[key]
		if !ok {
			stats = &resourceStats{}
			perResource[key] = stats
		}
		if res.Success {
			succeeded++
			stats.ok++
			metrics.ObserveTask("success")
		} else {
			failed++
			stats.err++
			metrics.ObserveTask("error")
		}
	}
	metrics.ObserveBatchDuration(elapsed)

	o.logger.Info("batch finished",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Duration("elapsed", elapsed),
	)
	for key, stats := range perResource {
		o.logger.Info("resource summary",
			zap.String("resource", key),
			zap.Int("succeeded", stats.ok),
			zap.Int("failed", stats.err),
		)
	}
}
