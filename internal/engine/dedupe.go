package engine

import (
	"net/url"
	"strings"
)

// urlKey normalizes a document URL for duplicate detection. Scheme and host
// are lowercased, the fragment and a trailing path slash are dropped. URLs
// that do not parse as absolute are compared verbatim.
func urlKey(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return rawURL
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	if len(parsed.Path) > 1 && strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}
	return parsed.String()
}

// urlSet tracks the URLs already present in the collection
type urlSet map[string]struct{}

func (s urlSet) add(rawURL string) {
	if rawURL != "" {
		s[urlKey(rawURL)] = struct{}{}
	}
}

func (s urlSet) has(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	_, ok := s[urlKey(rawURL)]
	return ok
}
