// Package structuring gates calls to the external document-structuring
// service.
package structuring

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/regfetch/regfetch/internal/scrape"
)

// DefaultMinChars is the input floor below which structuring is skipped:
// the service cannot produce a meaningful record from a fragment.
const DefaultMinChars = 200

// Service wraps a scrape.Structurer with an input-length gate. A skip is
// reported as scrape.ErrStructuringSkipped, which callers treat as "no
// structured output", not as a failure.
type Service struct {
	inner    scrape.Structurer
	minChars int
	logger   *zap.Logger
}

// New builds a Service. inner may be nil, in which case every call skips.
func New(inner scrape.Structurer, minChars int, logger *zap.Logger) *Service {
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	return &Service{inner: inner, minChars: minChars, logger: logger}
}

// Structure produces a structured document for text, or
// ErrStructuringSkipped when the input is too small or no service is
// wired.
func (s *Service) Structure(ctx context.Context, text string, url string) (*scrape.StructuredDocument, error) {
	trimmed := strings.TrimSpace(text)
	chars := utf8.RuneCountInString(trimmed)
	if s.inner == nil || chars < s.minChars {
		s.logger.Debug("structuring skipped",
			zap.String("url", url),
			zap.Int("chars", chars),
		)
		return nil, scrape.ErrStructuringSkipped
	}

	doc, err := s.inner.Structure(ctx, trimmed, url)
	if err != nil {
		return nil, fmt.Errorf("structure %s: %w", url, err)
	}
	if doc == nil {
		return nil, scrape.ErrStructuringSkipped
	}
	if doc.SourceURL == "" {
		doc.SourceURL = url
	}
	return doc, nil
}
