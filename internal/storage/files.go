// Package storage persists raw text, structured documents, and the SQLite
// index row tying them together.
package storage

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/regfetch/regfetch/internal/hash/sha256"
	"github.com/regfetch/regfetch/internal/scrape"
)

var invalidFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Files writes raw text and structured JSON documents under two
// configured directories.
type Files struct {
	rawDir        string
	structuredDir string
	hasher        *sha256.Hasher
}

// NewFiles builds a Files store. Directories are created on first write.
func NewFiles(rawDir, structuredDir string) *Files {
	return &Files{
		rawDir:        rawDir,
		structuredDir: structuredDir,
		hasher:        sha256.New(),
	}
}

// WriteRaw stores the extracted text for a URL and returns the file path.
func (f *Files) WriteRaw(rawURL string, text string) (string, error) {
	if err := os.MkdirAll(f.rawDir, 0o755); err != nil {
		return "", fmt.Errorf("create raw dir: %w", err)
	}
	path := filepath.Join(f.rawDir, f.basename(rawURL)+".txt")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write raw text: %w", err)
	}
	return path, nil
}

// WriteStructured stores a structured document as JSON and returns the
// file path.
func (f *Files) WriteStructured(doc *scrape.StructuredDocument) (string, error) {
	if err := os.MkdirAll(f.structuredDir, 0o755); err != nil {
		return "", fmt.Errorf("create structured dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	path := filepath.Join(f.structuredDir, f.basename(doc.SourceURL)+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write structured document: %w", err)
	}
	return path, nil
}

// basename derives a filesystem-safe name from a URL: sanitized host and
// path plus a digest suffix to keep distinct URLs distinct.
func (f *Files) basename(rawURL string) string {
	digest := f.hasher.Short([]byte(rawURL))
	u, err := url.Parse(rawURL)
	if err != nil {
		return digest
	}
	host := invalidFilenameChars.ReplaceAllString(u.Hostname(), "_")
	p := strings.Trim(u.EscapedPath(), "/")
	if p == "" {
		p = "root"
	}
	p = invalidFilenameChars.ReplaceAllString(p, "_")
	const maxPathPart = 80
	if len(p) > maxPathPart {
		p = p[:maxPathPart]
	}
	return fmt.Sprintf("%s_%s_%s", host, p, digest)
}
