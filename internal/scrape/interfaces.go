package scrape

import (
	"context"
)

// Fetcher performs one fetch attempt sequence for a URL. Both raw
// transports and the retry-wrapped fetchers satisfy it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchOutcome, error)
}

// Extraction is the output of a format-specific text extractor.
type Extraction struct {
	Text     string
	Metadata map[string]string
}

// Extractor turns a fetched payload into text plus metadata.
type Extractor interface {
	Extract(payload []byte, urlHint string) (Extraction, error)
}

// Structurer produces a structured document from extracted text, or
// ErrStructuringSkipped when it cannot produce a valid result.
type Structurer interface {
	Structure(ctx context.Context, text string, url string) (*StructuredDocument, error)
}

// Store persists raw text, structured documents, and the index row tying
// them together.
type Store interface {
	WriteRaw(url string, text string) (string, error)
	WriteStructured(doc *StructuredDocument) (string, error)
	Upsert(ctx context.Context, doc *StructuredDocument, rawPath, structuredPath, urlHash, textHash string) error
}
