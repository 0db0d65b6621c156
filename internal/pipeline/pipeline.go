// Package pipeline persists successful scrape results: raw text first,
// then the structured document and its index row when the structuring
// service produces one.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/regfetch/regfetch/internal/hash/sha256"
	"github.com/regfetch/regfetch/internal/scrape"
	"github.com/regfetch/regfetch/internal/structuring"
)

// Pipeline wires structuring and storage behind one Persist call.
type Pipeline struct {
	structurer *structuring.Service
	store      scrape.Store
	hasher     *sha256.Hasher
	logger     *zap.Logger
}

// New builds a Pipeline.
func New(structurer *structuring.Service, store scrape.Store, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		structurer: structurer,
		store:      store,
		hasher:     sha256.New(),
		logger:     logger,
	}
}

// Persist writes the raw text, then attempts structuring. A structuring
// skip keeps the raw write and returns nil; only storage failures come
// back as errors.
func (p *Pipeline) Persist(ctx context.Context, res scrape.TaskResult) error {
	rawPath, err := p.store.WriteRaw(res.URL, res.Text)
	if err != nil {
		return fmt.Errorf("persist raw %s: %w", res.URL, err)
	}

	doc, err := p.structurer.Structure(ctx, res.Text, res.URL)
	if errors.Is(err, scrape.ErrStructuringSkipped) {
		p.logger.Debug("no structured output", zap.String("url", res.URL))
		return nil
	}
	if err != nil {
		return err
	}

	structuredPath, err := p.store.WriteStructured(doc)
	if err != nil {
		return fmt.Errorf("persist structured %s: %w", res.URL, err)
	}

	urlHash := p.hasher.HashString(res.URL)
	textHash := p.hasher.HashString(res.Text)
	if err := p.store.Upsert(ctx, doc, rawPath, structuredPath, urlHash, textHash); err != nil {
		return err
	}

	p.logger.Info("document persisted",
		zap.String("url", res.URL),
		zap.String("raw_path", rawPath),
		zap.String("structured_path", structuredPath),
	)
	return nil
}
