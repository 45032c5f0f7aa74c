package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// ScopeDomains returns the hostnames a crawl starting at rawURL may visit.
// The scope is the start host and its www-prefixed twin, so "example.com"
// and "www.example.com" always travel together regardless of which form
// the job was given.
func ScopeDomains(rawURL string) ([]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse start url: %w", err)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, fmt.Errorf("start url %q has no host", rawURL)
	}

	bare := strings.TrimPrefix(host, "www.")
	if bare == "" {
		return nil, fmt.Errorf("start url %q has no host", rawURL)
	}

	return []string{bare, "www." + bare}, nil
}
