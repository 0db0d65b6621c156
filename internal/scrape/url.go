package scrape

import (
	"net/url"
	"strings"
)

// ResourceKeyOf normalizes a URL to the throttling key for its resource:
// the lower-cased host (including any explicit port). Unparseable URLs map
// to the empty key so they share one conservative throttle.
func ResourceKeyOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// PathOf returns the lower-cased path component of a URL, used by the
// processor chain's extension checks. Falls back to the raw string when
// parsing fails so suffix checks still see something sensible.
func PathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Path)
}
