package processor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/regfetch/regfetch/internal/scrape"
)

// runPipeline is the shared fetch-then-extract tail of every strategy.
// Extraction that parses but yields no text comes back as ErrNoContent so
// callers can tell an empty document from a broken one.
func runPipeline(ctx context.Context, url string, fetcher scrape.Fetcher, extractor scrape.Extractor) (Result, error) {
	out, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return Result{}, err
	}

	extraction, err := extractor.Extract(out.Body, url)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", scrape.ErrExtractionFailed, url, err)
	}
	if strings.TrimSpace(extraction.Text) == "" {
		return Result{ContentType: out.ContentType}, fmt.Errorf("%s: %w", url, scrape.ErrNoContent)
	}

	return Result{
		Text:        extraction.Text,
		Metadata:    extraction.Metadata,
		ContentType: out.ContentType,
	}, nil
}

// binaryStrategy handles downloaded document formats (PDF, DOCX/DOC).
// Binary payloads are always fetched statically; rendering them in a
// browser would be pointless.
type binaryStrategy struct {
	kind      Kind
	exts      []string
	typeHints []string
	fetcher   scrape.Fetcher
	extractor scrape.Extractor
	logger    *zap.Logger
}

func (s *binaryStrategy) Kind() Kind { return s.kind }

// CanHandle claims the URL by extension first, declared content type
// second, so a misleading header never beats the URL itself.
func (s *binaryStrategy) CanHandle(url string, contentType string) bool {
	p := scrape.PathOf(url)
	for _, ext := range s.exts {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	for _, hint := range s.typeHints {
		if containsLower(contentType, hint) {
			return true
		}
	}
	return false
}

func (s *binaryStrategy) Process(ctx context.Context, url string) (Result, error) {
	s.logger.Debug("processing document", zap.String("kind", string(s.kind)), zap.String("url", url))
	return runPipeline(ctx, url, s.fetcher, s.extractor)
}

// feedStrategy handles RSS and Atom feeds.
type feedStrategy struct {
	fetcher   scrape.Fetcher
	extractor scrape.Extractor
	logger    *zap.Logger
}

func (s *feedStrategy) Kind() Kind { return KindRSS }

func (s *feedStrategy) CanHandle(url string, contentType string) bool {
	lower := strings.ToLower(url)
	if strings.HasSuffix(scrape.PathOf(url), ".rss") ||
		strings.Contains(lower, ".rss") ||
		strings.Contains(lower, "/feed") {
		return true
	}
	for _, hint := range []string{"rss", "xml", "atom"} {
		if containsLower(contentType, hint) {
			return true
		}
	}
	return false
}

func (s *feedStrategy) Process(ctx context.Context, url string) (Result, error) {
	s.logger.Debug("processing feed", zap.String("url", url))
	return runPipeline(ctx, url, s.fetcher, s.extractor)
}

// htmlStrategy is the default pipeline. It is the only strategy that
// consults the resource's fetch mode: dynamic resources go through the
// renderer when one is wired.
type htmlStrategy struct {
	static    scrape.Fetcher
	dynamic   scrape.Fetcher
	modeFor   func(url string) scrape.FetchMode
	extractor scrape.Extractor
	logger    *zap.Logger
}

func (s *htmlStrategy) Kind() Kind { return KindHTML }

// CanHandle matches everything the earlier strategies pass on.
func (s *htmlStrategy) CanHandle(url string, contentType string) bool {
	p := scrape.PathOf(url)
	for _, ext := range []string{".pdf", ".docx", ".doc", ".rss"} {
		if strings.HasSuffix(p, ext) {
			return false
		}
	}
	if strings.Contains(strings.ToLower(url), "/feed") {
		return false
	}
	if contentType != "" {
		return containsLower(contentType, "html") || containsLower(contentType, "text/plain")
	}
	return true
}

func (s *htmlStrategy) Process(ctx context.Context, url string) (Result, error) {
	fetcher := s.static
	if s.modeFor != nil && s.modeFor(url) == scrape.FetchModeDynamic && s.dynamic != nil {
		s.logger.Debug("using dynamic rendering", zap.String("url", url))
		fetcher = s.dynamic
	}
	return runPipeline(ctx, url, fetcher, s.extractor)
}
