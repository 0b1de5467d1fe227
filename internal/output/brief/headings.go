// Package brief renders weekly brief markdown and resolves its per-item
// heading links against the week's kept-article metadata.
package brief

import (
	"regexp"
	"strings"

	"github.com/lueurxax/topic-garden/internal/core/links"
)

// MetadataRow ties a kept article's title to its canonical URL within one
// brief file.
type MetadataRow struct {
	BriefFilename string
	Title         string
	URL           string
}

// HeadingStats counts the outcomes of one ResolveHeadingLinks pass.
type HeadingStats struct {
	ExactMatches      int
	NormalizedMatches int
	Ambiguous         int
	Missing           int
	InvalidURL        int
	Unchanged         int
}

var (
	headingLinkRe     = regexp.MustCompile(`(?m)^(\s*##\s+\[)(.+?)(\]\()([^)]+)(\)\s*)$`)
	titleWhitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeTitle collapses whitespace and lower-cases a title for matching.
func NormalizeTitle(title string) string {
	return strings.ToLower(titleWhitespaceRe.ReplaceAllString(strings.TrimSpace(title), " "))
}

type titleIndex struct {
	exact      map[string][]string
	normalized map[string][]string
}

func buildTitleIndex(rows []MetadataRow, briefFilename string) titleIndex {
	idx := titleIndex{
		exact:      make(map[string][]string),
		normalized: make(map[string][]string),
	}

	for _, row := range rows {
		if strings.TrimSpace(row.BriefFilename) != briefFilename {
			continue
		}

		title := strings.TrimSpace(row.Title)
		if title == "" {
			continue
		}

		url := strings.TrimSpace(row.URL)
		idx.exact[title] = append(idx.exact[title], url)

		if normalized := NormalizeTitle(title); normalized != "" {
			idx.normalized[normalized] = append(idx.normalized[normalized], url)
		}
	}

	return idx
}

// ResolveHeadingLinks rewrites `## [Title](url)` headings to the canonical
// URL recorded for that title. A title must match exactly one metadata row,
// first by exact text, then by normalized text; anything ambiguous or
// unknown is left untouched rather than guessed.
func ResolveHeadingLinks(markdown, briefFilename string, rows []MetadataRow) (string, HeadingStats) {
	idx := buildTitleIndex(rows, briefFilename)

	var stats HeadingStats

	out := headingLinkRe.ReplaceAllStringFunc(markdown, func(heading string) string {
		groups := headingLinkRe.FindStringSubmatch(heading)
		title := strings.TrimSpace(groups[2])
		currentURL := strings.TrimSpace(groups[4])

		if candidates, ok := resolveCandidates(idx.exact[title]); ok {
			return rewriteHeading(groups, title, currentURL, candidates, &stats, &stats.ExactMatches)
		} else if len(idx.exact[title]) > 1 {
			stats.Ambiguous++
			stats.Unchanged++

			return heading
		}

		normalized := NormalizeTitle(title)
		if normalized == "" {
			stats.Missing++
			stats.Unchanged++

			return heading
		}

		if candidates, ok := resolveCandidates(idx.normalized[normalized]); ok {
			return rewriteHeading(groups, title, currentURL, candidates, &stats, &stats.NormalizedMatches)
		} else if len(idx.normalized[normalized]) > 1 {
			stats.Ambiguous++
			stats.Unchanged++

			return heading
		}

		stats.Missing++
		stats.Unchanged++

		return heading
	})

	return out, stats
}

func resolveCandidates(candidates []string) (string, bool) {
	if len(candidates) == 1 {
		return candidates[0], true
	}

	return "", false
}

func rewriteHeading(groups []string, title, currentURL, canonical string, stats *HeadingStats, matched *int) string {
	if !links.IsValidHTTPURL(canonical) {
		stats.InvalidURL++
		stats.Unchanged++

		return groups[0]
	}

	*matched++

	if canonical == currentURL {
		stats.Unchanged++

		return groups[0]
	}

	return groups[1] + title + groups[3] + canonical + groups[5]
}
