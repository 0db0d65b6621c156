// Package main wires together the regfetch batch scraper binary.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/regfetch/regfetch/internal/batch"
	"github.com/regfetch/regfetch/internal/config"
	"github.com/regfetch/regfetch/internal/extract"
	"github.com/regfetch/regfetch/internal/fetcher"
	"github.com/regfetch/regfetch/internal/fetcher/headless"
	"github.com/regfetch/regfetch/internal/fetcher/static"
	"github.com/regfetch/regfetch/internal/logging"
	"github.com/regfetch/regfetch/internal/metrics"
	"github.com/regfetch/regfetch/internal/pipeline"
	"github.com/regfetch/regfetch/internal/policy"
	"github.com/regfetch/regfetch/internal/policy/robots"
	"github.com/regfetch/regfetch/internal/policy/throttle"
	"github.com/regfetch/regfetch/internal/processor"
	"github.com/regfetch/regfetch/internal/scrape"
	"github.com/regfetch/regfetch/internal/storage"
	"github.com/regfetch/regfetch/internal/structuring"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file")
	urlsFile := flag.String("urls", "", "file with one URL per line")
	maxConcurrent := flag.Int("max-concurrent", 0, "batch fan-out override")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	urls, err := collectURLs(*urlsFile, flag.Args())
	if err != nil {
		logger.Fatal("collect urls", zap.Error(err))
	}
	if len(urls) == 0 {
		logger.Fatal("no URLs given; pass them as arguments or via -urls")
	}

	metrics.Init()
	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Port, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, cleanup, err := run(ctx, cfg, urls, *maxConcurrent, logger)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		logger.Fatal("run batch", zap.Error(err))
	}

	var failed int
	for _, res := range results {
		if res.Success {
			fmt.Printf("ok      %s (%d chars)\n", res.URL, len(res.Text))
			continue
		}
		failed++
		fmt.Printf("error   %s: %s\n", res.URL, res.ErrText())
	}
	if failed == len(results) {
		os.Exit(1)
	}
}

func run(
	ctx context.Context,
	cfg config.Config,
	urls []string,
	maxConcurrent int,
	logger *zap.Logger,
) ([]scrape.TaskResult, func(), error) {
	cache := robots.NewCache(cfg.Gateway.UserAgent, logger)
	registry := throttle.NewRegistry(cfg.ResourceOverrides(), cfg.Gateway.GlobalConcurrency, logger)
	gateway := policy.NewGateway(cache, registry, logger)

	staticTransport := static.New(static.Config{
		UserAgent: cfg.Gateway.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
	})
	staticFetcher := fetcher.NewRetrying(gateway, staticTransport, fetcher.RetryPolicy{
		MaxAttempts: cfg.HTTP.MaxAttempts,
		BaseDelay:   time.Duration(cfg.HTTP.BackoffBaseSec) * time.Second,
		MaxDelay:    time.Duration(cfg.HTTP.BackoffMaxSec) * time.Second,
	}, logger)

	cleanup := func() {}
	var dynamicFetcher scrape.Fetcher
	if cfg.Headless.Enabled {
		renderer, err := headless.New(headless.Config{
			MaxParallel:      cfg.Headless.MaxParallel,
			UserAgent:        cfg.Gateway.UserAgent,
			NavTimeout:       cfg.NavTimeout(),
			RendersPerSecond: cfg.Headless.RendersPerSecond,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init renderer: %w", err)
		}
		cleanup = renderer.Close
		dynamicFetcher = fetcher.NewRetrying(gateway, renderer, fetcher.RetryPolicy{
			MaxAttempts: cfg.Headless.MaxAttempts,
			BaseDelay:   time.Duration(cfg.Headless.BackoffBaseSec) * time.Second,
			MaxDelay:    time.Duration(cfg.Headless.BackoffMaxSec) * time.Second,
		}, logger)
	}

	router := processor.NewRouter(processor.Deps{
		Static:  staticFetcher,
		Dynamic: dynamicFetcher,
		ModeFor: gateway.ModeFor,
		Extractors: processor.Extractors{
			PDF:  extract.NewUnsupported("pdf"),
			DOCX: extract.NewUnsupported("docx"),
			RSS:  extract.NewRSS(),
			HTML: extract.NewHTML(),
		},
		Logger: logger,
	})

	files := storage.NewFiles(cfg.Storage.RawDir, cfg.Storage.StructuredDir)
	db, err := storage.OpenDB(cfg.Storage.DBPath, logger)
	if err != nil {
		return nil, cleanup, fmt.Errorf("open document index: %w", err)
	}
	prevCleanup := cleanup
	cleanup = func() {
		if cerr := db.Close(); cerr != nil {
			logger.Warn("close document index", zap.Error(cerr))
		}
		prevCleanup()
	}

	structurer := structuring.New(nil, cfg.Structuring.MinChars, logger)
	sink := pipeline.New(structurer, storage.NewStore(files, db), logger)

	if maxConcurrent <= 0 {
		maxConcurrent = cfg.Batch.MaxConcurrent
	}
	orch := batch.New(router, sink, logger)
	return orch.Run(ctx, urls, maxConcurrent), cleanup, nil
}

func collectURLs(path string, args []string) ([]string, error) {
	urls := append([]string(nil), args...)
	if path == "" {
		return urls, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}

func serveMetrics(port int, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	addr := fmt.Sprintf(":%d", port)
	logger.Info("metrics endpoint listening", zap.String("addr", addr))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		logger.Warn("metrics endpoint stopped", zap.Error(err))
	}
}
