package frontmatter

import (
	"sort"
	"strings"
)

const (
	maxTags      = 12
	maxTagLength = 64
)

var tagReplacer = strings.NewReplacer(" ", "-", "_", "-", "/", "-")

// NormalizeTags lower-cases tags, replaces non-alphanumeric runs with single
// hyphens, drops empty and over-long results, and dedupes in first-seen
// order, capped at twelve tags.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, raw := range tags {
		tag := normalizeTag(raw)
		if tag == "" || len(tag) > maxTagLength {
			continue
		}

		if _, ok := seen[tag]; ok {
			continue
		}

		seen[tag] = struct{}{}
		out = append(out, tag)

		if len(out) == maxTags {
			break
		}
	}

	return out
}

// AggregateTags merges per-document tag lists into one list ranked by how
// many documents carry each tag, ties broken alphabetically.
func AggregateTags(tagLists [][]string) []string {
	counts := make(map[string]int)

	for _, tags := range tagLists {
		for _, tag := range NormalizeTags(tags) {
			counts[tag]++
		}
	}

	ranked := make([]string, 0, len(counts))
	for tag := range counts {
		ranked = append(ranked, tag)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}

		return ranked[i] < ranked[j]
	})

	if len(ranked) > maxTags {
		ranked = ranked[:maxTags]
	}

	return ranked
}

func normalizeTag(raw string) string {
	tag := strings.ToLower(strings.TrimSpace(raw))
	tag = tagReplacer.Replace(tag)

	var b strings.Builder

	lastHyphen := false

	for _, r := range tag {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)

			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}

			lastHyphen = true
		}
	}

	return strings.Trim(b.String(), "-")
}
