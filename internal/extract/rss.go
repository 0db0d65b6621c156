package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/regfetch/regfetch/internal/scrape"
)

// RSS extracts item text from syndication feeds. Parsing is delegated to
// gofeed, which detects RSS (including RDF), Atom, and JSON Feed.
type RSS struct{}

// NewRSS returns a feed extractor.
func NewRSS() *RSS {
	return &RSS{}
}

// Extract parses the feed and concatenates per-item title and summary
// text. A well-formed feed with zero items yields empty text, not an
// error.
func (e *RSS) Extract(payload []byte, urlHint string) (scrape.Extraction, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(payload))
	if err != nil {
		return scrape.Extraction{}, fmt.Errorf("parse feed %s: %w", urlHint, err)
	}

	parts := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		parts = append(parts, itemText(item.Title, summary))
	}
	return feedExtraction(feed.Title, parts), nil
}

func itemText(title, summary string) string {
	title = strings.TrimSpace(title)
	summary = strings.TrimSpace(summary)
	switch {
	case title == "":
		return summary
	case summary == "":
		return title
	default:
		return title + "\n\n" + summary
	}
}

func feedExtraction(title string, parts []string) scrape.Extraction {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	meta := map[string]string{
		"item_count": strconv.Itoa(len(nonEmpty)),
	}
	if t := strings.TrimSpace(title); t != "" {
		meta["feed_title"] = t
	}
	return scrape.Extraction{
		Text:     strings.Join(nonEmpty, "\n\n---\n\n"),
		Metadata: meta,
	}
}
