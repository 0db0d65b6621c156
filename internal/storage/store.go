package storage

import (
	"context"

	"github.com/regfetch/regfetch/internal/scrape"
)

// Store combines the file store and the SQLite index behind the
// scrape.Store contract. The database is optional; without one, Upsert is
// a no-op and only files are written.
type Store struct {
	files *Files
	db    *DB
}

var _ scrape.Store = (*Store)(nil)

// NewStore builds a Store. db may be nil.
func NewStore(files *Files, db *DB) *Store {
	return &Store{files: files, db: db}
}

// WriteRaw stores extracted text for a URL.
func (s *Store) WriteRaw(url string, text string) (string, error) {
	return s.files.WriteRaw(url, text)
}

// WriteStructured stores a structured document as JSON.
func (s *Store) WriteStructured(doc *scrape.StructuredDocument) (string, error) {
	return s.files.WriteStructured(doc)
}

// Upsert refreshes the document index row.
func (s *Store) Upsert(ctx context.Context, doc *scrape.StructuredDocument, rawPath, structuredPath, urlHash, textHash string) error {
	if s.db == nil {
		return nil
	}
	return s.db.Upsert(ctx, doc, rawPath, structuredPath, urlHash, textHash)
}
