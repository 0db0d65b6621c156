// Package processor routes each URL to the format-specific pipeline that
// will fetch and consume its payload.
package processor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/regfetch/regfetch/internal/scrape"
)

// Kind identifies a processing strategy.
type Kind string

// Strategy kinds in chain priority order.
const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindRSS  Kind = "rss"
	KindHTML Kind = "html"
)

// Result is the output of one strategy run.
type Result struct {
	Text        string
	Metadata    map[string]string
	ContentType string
}

// Strategy is one document-type pipeline: it picks the transport, fetches
// the payload, and hands it to the matching extractor.
type Strategy interface {
	Kind() Kind
	CanHandle(url string, contentType string) bool
	Process(ctx context.Context, url string) (Result, error)
}

// Extractors supplies the per-kind text extractors the strategies delegate
// to.
type Extractors struct {
	PDF  scrape.Extractor
	DOCX scrape.Extractor
	RSS  scrape.Extractor
	HTML scrape.Extractor
}

// Deps wires a Router.
type Deps struct {
	// Static and Dynamic are retry-wrapped fetchers; Dynamic may be nil
	// when no renderer is available, in which case everything goes static.
	Static  scrape.Fetcher
	Dynamic scrape.Fetcher

	// ModeFor resolves a URL's configured fetch mode.
	ModeFor func(url string) scrape.FetchMode

	Extractors Extractors
	Logger     *zap.Logger
}

// Router evaluates a fixed-priority strategy chain: PDF, DOCX, RSS, then
// HTML as the guaranteed fallback. There is no "no processor found" state.
type Router struct {
	chain []Strategy
}

// NewRouter builds the chain.
func NewRouter(deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Router{chain: []Strategy{
		&binaryStrategy{
			kind:      KindPDF,
			exts:      []string{".pdf"},
			typeHints: []string{"pdf"},
			fetcher:   deps.Static,
			extractor: deps.Extractors.PDF,
			logger:    deps.Logger,
		},
		&binaryStrategy{
			kind:      KindDOCX,
			exts:      []string{".docx", ".doc"},
			typeHints: []string{"msword", "wordprocessingml"},
			fetcher:   deps.Static,
			extractor: deps.Extractors.DOCX,
			logger:    deps.Logger,
		},
		&feedStrategy{
			fetcher:   deps.Static,
			extractor: deps.Extractors.RSS,
			logger:    deps.Logger,
		},
		&htmlStrategy{
			static:    deps.Static,
			dynamic:   deps.Dynamic,
			modeFor:   deps.ModeFor,
			extractor: deps.Extractors.HTML,
			logger:    deps.Logger,
		},
	}}
}

// Select returns the first strategy claiming the URL. The HTML fallback
// claims everything the earlier strategies pass on.
func (r *Router) Select(url string, contentType string) Strategy {
	for _, s := range r.chain {
		if s.CanHandle(url, contentType) {
			return s
		}
	}
	return r.chain[len(r.chain)-1]
}

func containsLower(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
