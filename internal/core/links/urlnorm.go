// Package links provides URL normalization, the allow-list index, and the
// markdown link sanitizer. The allow-list is the single source of truth for
// "is this link trusted" throughout the pipeline.
package links

import (
	"net/url"
	"strings"
)

// trackingParams are query parameter names stripped before URL comparison.
// Keys are matched case-insensitively.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"msclkid":      {},
	"ref":          {},
	"mc_cid":       {},
	"mc_eid":       {},
	"_ga":          {},
}

// IsValidHTTPURL reports whether raw is an absolute http(s) URL with a host.
// Anything else is treated as untrusted, never as an error.
func IsValidHTTPURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// NormalizeForMatch canonicalizes a URL for equality comparison: tracking
// parameters and the fragment are dropped, remaining query parameters are
// re-encoded in sorted order. Returns "" for unparseable input.
func NormalizeForMatch(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	filtered := url.Values{}

	for key, values := range parsed.Query() {
		if _, ok := trackingParams[strings.ToLower(key)]; ok {
			continue
		}

		for _, value := range values {
			if value == "" {
				continue
			}

			filtered.Add(key, value)
		}
	}

	parsed.RawQuery = filtered.Encode()
	parsed.Fragment = ""
	parsed.RawFragment = ""

	return parsed.String()
}
