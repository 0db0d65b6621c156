package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/regfetch/regfetch/internal/scrape"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "index.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return db
}

func TestDBUpsertInsertsAndUpdates(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	doc := &scrape.StructuredDocument{
		Title:        "Proposed Rule",
		DocumentType: "rule",
		SourceURL:    "https://example.com/rules/1",
	}

	require.NoError(t, db.Upsert(ctx, doc, "raw/a.txt", "structured/a.json", "hash-1", "text-1"))
	n, err := db.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// Same URL hash replaces the row instead of duplicating it.
	doc.Title = "Final Rule"
	require.NoError(t, db.Upsert(ctx, doc, "raw/a.txt", "structured/a.json", "hash-1", "text-2"))
	n, err = db.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var title, textHash string
	row := db.db.QueryRowContext(ctx, `SELECT title, text_hash FROM documents WHERE url_hash = ?`, "hash-1")
	require.NoError(t, row.Scan(&title, &textHash))
	require.Equal(t, "Final Rule", title)
	require.Equal(t, "text-2", textHash)
}

func TestDBUpsertDistinctHashes(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	for i, hash := range []string{"h1", "h2", "h3"} {
		doc := &scrape.StructuredDocument{
			Title:     "doc",
			SourceURL: "https://example.com/" + hash,
		}
		require.NoError(t, db.Upsert(ctx, doc, "", "", hash, ""))
		n, err := db.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, i+1, n)
	}
}

func TestDBUpsertAssignsID(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	doc := &scrape.StructuredDocument{SourceURL: "https://example.com/doc"}

	require.NoError(t, db.Upsert(ctx, doc, "", "", "hash-id", ""))

	var id string
	row := db.db.QueryRowContext(ctx, `SELECT id FROM documents WHERE url_hash = ?`, "hash-id")
	require.NoError(t, row.Scan(&id))
	require.NotEmpty(t, id)
}

func TestStoreWithoutDB(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStore(NewFiles(filepath.Join(dir, "raw"), filepath.Join(dir, "structured")), nil)

	_, err := s.WriteRaw("https://example.com/p", "text")
	require.NoError(t, err)
	require.NoError(t, s.Upsert(context.Background(), &scrape.StructuredDocument{}, "", "", "h", ""))
}
