// Package extract holds the in-process text extractors. Binary formats
// (PDF, DOCX) are decoded by external collaborators; see Unsupported.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/regfetch/regfetch/internal/scrape"
)

// HTML extracts clean text from an HTML payload.
type HTML struct{}

// NewHTML returns an HTML extractor.
func NewHTML() *HTML {
	return &HTML{}
}

// Extract strips boilerplate elements and returns the page's visible text.
func (e *HTML) Extract(payload []byte, urlHint string) (scrape.Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return scrape.Extraction{}, fmt.Errorf("parse html %s: %w", urlHint, err)
	}

	doc.Find("script, style, noscript, iframe, svg, nav, header, footer, aside").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	meta := map[string]string{}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		meta["title"] = title
	}

	return scrape.Extraction{
		Text:     collapseWhitespace(root.Text()),
		Metadata: meta,
	}, nil
}

// collapseWhitespace flattens runs of blank space while keeping line
// structure, so extracted text stays readable.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		out = append(out, strings.Join(fields, " "))
	}
	return strings.Join(out, "\n")
}
