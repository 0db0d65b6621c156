package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/regfetch/regfetch/internal/id/uuid"
	"github.com/regfetch/regfetch/internal/scrape"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id                TEXT NOT NULL,
	url_hash          TEXT PRIMARY KEY,
	source_url        TEXT NOT NULL,
	title             TEXT,
	document_type     TEXT,
	issuing_authority TEXT,
	publication_date  TEXT,
	summary           TEXT,
	raw_path          TEXT,
	structured_path   TEXT,
	text_hash         TEXT,
	updated_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_text_hash ON documents(text_hash);
`

// DB indexes stored documents in SQLite, keyed by URL hash.
type DB struct {
	db     *sql.DB
	ids    *uuid.Generator
	logger *zap.Logger
}

// OpenDB opens (creating if needed) the document index at path.
func OpenDB(path string, logger *zap.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent upserts.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{db: db, ids: uuid.New(), logger: logger}, nil
}

// Upsert inserts or refreshes the index row for a document. The URL hash
// is the identity; re-scraping a URL updates its row in place.
func (d *DB) Upsert(ctx context.Context, doc *scrape.StructuredDocument, rawPath, structuredPath, urlHash, textHash string) error {
	id := doc.ID
	if id == "" {
		var err error
		if id, err = d.ids.NewID(); err != nil {
			return err
		}
	}
	var pubDate string
	if doc.PublicationDate != nil {
		pubDate = doc.PublicationDate.Format(time.RFC3339)
	}

	_, err := d.db.ExecContext(ctx, `
INSERT INTO documents (
	id, url_hash, source_url, title, document_type, issuing_authority,
	publication_date, summary, raw_path, structured_path, text_hash, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url_hash) DO UPDATE SET
	source_url        = excluded.source_url,
	title             = excluded.title,
	document_type     = excluded.document_type,
	issuing_authority = excluded.issuing_authority,
	publication_date  = excluded.publication_date,
	summary           = excluded.summary,
	raw_path          = excluded.raw_path,
	structured_path   = excluded.structured_path,
	text_hash         = excluded.text_hash,
	updated_at        = excluded.updated_at`,
		id, urlHash, doc.SourceURL, doc.Title, doc.DocumentType, doc.IssuingAuthority,
		pubDate, doc.Summary, rawPath, structuredPath, textHash,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.SourceURL, err)
	}
	d.logger.Debug("document indexed",
		zap.String("url", doc.SourceURL),
		zap.String("url_hash", urlHash),
	)
	return nil
}

// Count returns the number of indexed documents.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}
