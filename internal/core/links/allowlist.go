package links

import "strings"

// Index maps a normalized URL to its first-seen canonical (literal) form.
// It is built fresh per run from a specific trust boundary and never
// persisted. A nil Index means "no trust boundary": filtering degrades to
// plain deduplication.
type Index map[string]string

// BuildIndex folds a sequence of literal URLs into normalized -> first-seen
// canonical, silently skipping invalid and duplicate entries.
func BuildIndex(urls []string) Index {
	index := Index{}

	for _, raw := range urls {
		candidate := strings.TrimSpace(raw)
		if !IsValidHTTPURL(candidate) {
			continue
		}

		normalized := NormalizeForMatch(candidate)
		if normalized == "" {
			continue
		}

		if _, ok := index[normalized]; ok {
			continue
		}

		index[normalized] = candidate
	}

	return index
}

// Canonical returns the allow-listed canonical form of raw, or "" when raw is
// invalid or not in the index.
func (idx Index) Canonical(raw string) string {
	candidate := strings.TrimSpace(raw)
	if !IsValidHTTPURL(candidate) {
		return ""
	}

	normalized := NormalizeForMatch(candidate)
	if normalized == "" {
		return ""
	}

	return idx[normalized]
}

// DedupeURLs removes empty and repeated literals, preserving first-seen order.
func DedupeURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))

	for _, raw := range urls {
		candidate := strings.TrimSpace(raw)
		if candidate == "" {
			continue
		}

		if _, ok := seen[candidate]; ok {
			continue
		}

		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}

	return out
}

// FilterToAllowed reduces urls to their allow-listed canonical forms, deduped
// by normalized key. With a nil index it only dedupes literals.
func FilterToAllowed(urls []string, idx Index) []string {
	deduped := DedupeURLs(urls)
	if idx == nil {
		return deduped
	}

	out := make([]string, 0, len(deduped))
	seenNorm := make(map[string]struct{}, len(deduped))

	for _, raw := range deduped {
		normalized := NormalizeForMatch(raw)
		if normalized == "" {
			continue
		}

		canonical, ok := idx[normalized]
		if !ok {
			continue
		}

		if _, dup := seenNorm[normalized]; dup {
			continue
		}

		seenNorm[normalized] = struct{}{}
		out = append(out, canonical)
	}

	return out
}

// ResolveAllowed returns the canonical form of the first of (sourceURL,
// itemLink) that the index trusts, or "" when neither does. With a nil index
// it returns the first non-empty candidate unchecked.
func ResolveAllowed(sourceURL, itemLink string, idx Index) string {
	if idx == nil {
		if s := strings.TrimSpace(sourceURL); s != "" {
			return s
		}

		return strings.TrimSpace(itemLink)
	}

	for _, raw := range []string{sourceURL, itemLink} {
		if canonical := idx.Canonical(raw); canonical != "" {
			return canonical
		}
	}

	return ""
}
