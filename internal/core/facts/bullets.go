// Package facts converts LLM-authored prose into canonical one-fact-per-line
// bullet lists and maintains per-document footnote ledgers, so downstream
// citation logic always operates on a uniform atomic unit.
package facts

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	bulletLineRe     = regexp.MustCompile(`^\s*[-*+]\s+`)
	numberedLineRe   = regexp.MustCompile(`^\s*\d+[.)]\s+`)
	headingPrefixRe  = regexp.MustCompile(`^#{1,6}\s+`)
	sentenceBoundRe  = regexp.MustCompile(`[.!?]\s+[A-Z0-9\[]`)
	whitespaceRunsRe = regexp.MustCompile(`\s+`)
)

// NormalizeToBullets converts arbitrary markdown into a bullet-per-fact
// block. Bulleted and numbered lines keep one fact each; footnote definition
// lines are dropped (they are regenerated downstream); remaining prose is
// split into sentences, one fact per sentence. Facts are deduplicated by
// exact text in first-seen order.
func NormalizeToBullets(markdown string) string {
	text := strings.TrimSpace(markdown)
	if text == "" {
		return ""
	}

	var collected []string

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if bulletLineRe.MatchString(line) {
			if fact := strings.TrimSpace(bulletLineRe.ReplaceAllString(line, "")); fact != "" {
				collected = append(collected, fact)
			}

			continue
		}

		if numberedLineRe.MatchString(line) {
			if fact := strings.TrimSpace(numberedLineRe.ReplaceAllString(line, "")); fact != "" {
				collected = append(collected, fact)
			}

			continue
		}

		if footnoteDefLineRe.MatchString(line) {
			continue
		}

		line = strings.TrimSpace(headingPrefixRe.ReplaceAllString(line, ""))

		for _, segment := range splitSentences(line) {
			if fact := strings.TrimSpace(segment); fact != "" {
				collected = append(collected, fact)
			}
		}
	}

	deduped := mergeUnique(collected)
	if len(deduped) == 0 {
		return ""
	}

	return "- " + strings.Join(deduped, "\n- ")
}

// splitSentences splits prose on sentence-ending punctuation followed by
// whitespace and a capital letter, digit, or footnote marker.
func splitSentences(line string) []string {
	bounds := sentenceBoundRe.FindAllStringIndex(line, -1)
	if bounds == nil {
		return []string{line}
	}

	var out []string

	start := 0

	for _, b := range bounds {
		// b[0] is the punctuation mark; the next sentence starts at the
		// final byte of the match (capital letter, digit or "[").
		out = append(out, line[start:b[0]+1])
		start = b[1] - 1
	}

	out = append(out, line[start:])

	return out
}

// NormalizeForMatch reduces a bullet line to its comparable fact text: the
// bullet or number prefix, footnote markers, and the legacy mentions suffix
// are stripped, whitespace is collapsed, and the result is lower-cased.
// Two bullets are the same fact iff their normalized forms are equal.
func NormalizeForMatch(line string) string {
	text := norm.NFC.String(strings.TrimSpace(line))
	text = bulletLineRe.ReplaceAllString(text, "")
	text = numberedLineRe.ReplaceAllString(text, "")
	text = footnoteMarkerRe.ReplaceAllString(text, "")
	text = mentionsSuffixRe.ReplaceAllString(text, "")
	text = whitespaceRunsRe.ReplaceAllString(text, " ")

	return strings.ToLower(strings.TrimSpace(text))
}

func mergeUnique(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))

	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}

		if _, ok := seen[value]; ok {
			continue
		}

		seen[value] = struct{}{}
		out = append(out, value)
	}

	return out
}
