package extract

import (
	"fmt"

	"github.com/regfetch/regfetch/internal/scrape"
)

// Unsupported stands in for binary-format decoders that are supplied by
// an external collaborator. It fails every extraction with a clear error
// naming the missing kind.
type Unsupported struct {
	kind string
}

// NewUnsupported returns a placeholder extractor for kind.
func NewUnsupported(kind string) *Unsupported {
	return &Unsupported{kind: kind}
}

// Extract always fails: no decoder is wired for this kind.
func (e *Unsupported) Extract(_ []byte, urlHint string) (scrape.Extraction, error) {
	return scrape.Extraction{}, fmt.Errorf("no %s extractor configured for %s", e.kind, urlHint)
}
