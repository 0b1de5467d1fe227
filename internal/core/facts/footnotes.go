package facts

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	footnoteDefLineRe = regexp.MustCompile(`^\[\^(\d+)\]:\s*(\S+)\s*$`)
	footnoteMarkerRe  = regexp.MustCompile(`\[\^(\d+)\]`)
	mentionsSuffixRe  = regexp.MustCompile(`(?i)\s*_\(\s*mentions:\s*\d+\s+sources?\s*\)_\s*$`)
	trailingMarkerRe  = regexp.MustCompile(`\[\^\d+\]\s*$`)
)

// Ledger is the per-document mapping from footnote index to source URL.
// It is reconstructible from the document text alone, so multiple updates in
// one run compose without hidden counters.
type Ledger map[int]string

// ParseLedger extracts footnote definitions ("[^n]: url" lines) from
// markdown. The first definition of an index wins.
func ParseLedger(markdown string) Ledger {
	ledger := Ledger{}

	for _, rawLine := range strings.Split(markdown, "\n") {
		groups := footnoteDefLineRe.FindStringSubmatch(strings.TrimSpace(rawLine))
		if groups == nil {
			continue
		}

		idx, err := strconv.Atoi(groups[1])
		if err != nil {
			continue
		}

		if _, ok := ledger[idx]; ok {
			continue
		}

		ledger[idx] = strings.TrimSpace(groups[2])
	}

	return ledger
}

// NextIndex returns the next unused footnote index (1 for an empty ledger).
func (l Ledger) NextIndex() int {
	max := 0

	for idx := range l {
		if idx > max {
			max = idx
		}
	}

	return max + 1
}

// IndexFor returns the index already assigned to url, if any. Reusing the
// index is what prevents duplicate footnotes when a URL is cited twice.
func (l Ledger) IndexFor(url string) (int, bool) {
	indexes := make([]int, 0, len(l))
	for idx := range l {
		indexes = append(indexes, idx)
	}

	sort.Ints(indexes)

	for _, idx := range indexes {
		if l[idx] == url {
			return idx, true
		}
	}

	return 0, false
}

// Marker renders the inline footnote marker for an index.
func Marker(idx int) string {
	return fmt.Sprintf("[^%d]", idx)
}

// Definition renders the footnote definition line for an index and URL.
func Definition(idx int, url string) string {
	return fmt.Sprintf("[^%d]: %s", idx, url)
}

// MarkerIndexes returns the footnote indexes referenced by text.
func MarkerIndexes(text string) []int {
	var out []int

	for _, groups := range footnoteMarkerRe.FindAllStringSubmatch(text, -1) {
		idx, err := strconv.Atoi(groups[1])
		if err != nil {
			continue
		}

		out = append(out, idx)
	}

	return out
}

// EndsWithMarker reports whether text already ends with a footnote marker,
// in which case a new marker is appended without a spacer.
func EndsWithMarker(text string) bool {
	return trailingMarkerRe.MatchString(text)
}

// SplitMentionsSuffix separates the legacy "_(mentions: N sources)_" display
// suffix from a bullet line. The suffix is informational only and is never
// recalculated; it is carried through unchanged.
func SplitMentionsSuffix(line string) (core, suffix string) {
	loc := mentionsSuffixRe.FindStringIndex(line)
	if loc == nil {
		return strings.TrimRight(line, " \t"), ""
	}

	return strings.TrimRight(line[:loc[0]], " \t"), line[loc[0]:]
}

// IsFootnoteDefinition reports whether line is a "[^n]: url" definition.
func IsFootnoteDefinition(line string) bool {
	return footnoteDefLineRe.MatchString(strings.TrimSpace(line))
}

// IsBulletLine reports whether line is a markdown list item.
func IsBulletLine(line string) bool {
	return bulletLineRe.MatchString(line)
}

// WithSourceFootnotes appends numbered footnote markers for each source URL
// to body and renders the matching definitions block, numbering from 1.
// Sources are deduped by literal; an empty source list returns the body
// unchanged. For documents that already carry definitions, use
// AppendSourceFootnotes with the parsed ledger instead.
func WithSourceFootnotes(body string, sourceURLs []string) string {
	return AppendSourceFootnotes(body, sourceURLs, Ledger{})
}

// AppendSourceFootnotes appends footnote markers for each source URL to
// body, allocating indexes through ledger: a URL already defined reuses its
// index and gets no new definition; fresh URLs take the next free index and
// render a definition below the body. Allocations are recorded in the
// ledger, so sequential calls over one document compose.
func AppendSourceFootnotes(body string, sourceURLs []string, ledger Ledger) string {
	trimmed := strings.TrimSpace(body)

	sources := mergeUnique(sourceURLs)
	if len(sources) == 0 {
		return trimmed
	}

	var markers, defs strings.Builder

	for _, url := range sources {
		idx, ok := ledger.IndexFor(url)
		if !ok {
			idx = ledger.NextIndex()
			ledger[idx] = url

			if defs.Len() > 0 {
				defs.WriteString("\n")
			}

			defs.WriteString(Definition(idx, url))
		}

		markers.WriteString(Marker(idx))
	}

	out := markers.String()
	if trimmed != "" {
		out = trimmed + " " + out
	}

	if defs.Len() > 0 {
		out += "\n\n" + defs.String()
	}

	return out
}
