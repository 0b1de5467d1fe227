package links

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// UnverifiedLinkPlaceholder replaces untrusted link text that has no label,
// so filler links never survive into rendered output.
const UnverifiedLinkPlaceholder = "(link removed)"

// trailingPunctuation is split off bare URLs and preserved outside the link.
const trailingPunctuation = ".,;:!?)\"'"

var (
	markdownLinkRe = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+)\)`)
	htmlAnchorRe   = regexp.MustCompile(`(?is)<a\b[^>]*\bhref\s*=\s*(?:"(https?://[^">\s]+)"|'(https?://[^'>\s]+)')[^>]*>(.*?)</a>`)
	autolinkRe     = regexp.MustCompile(`<(https?://[^>\s]+)>`)
	bareURLRe      = regexp.MustCompile(`(?i)https?://[^\s<>()\]\}]+`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// SanitizeStats counts link sanitization outcomes for one pass.
type SanitizeStats struct {
	Kept          int
	Rewritten     int
	HTMLConverted int
	Delinked      int
	Invalid       int
	Unmatched     int
}

type linkStatus int

const (
	linkTrusted linkStatus = iota
	linkInvalid
	linkUnmatched
)

// Sanitize keeps or canonicalizes trusted links in markdown and de-links
// untrusted ones to their label text (or the placeholder). Passes run in a
// fixed order -- HTML anchors, markdown links, autolinks, bare URLs -- so a
// later pass never re-matches output produced by an earlier one. The pass is
// idempotent: all emitted link forms are already in canonical form.
func Sanitize(markdown string, idx Index) (string, SanitizeStats) {
	s := &sanitizer{index: idx}

	out := htmlAnchorRe.ReplaceAllStringFunc(markdown, s.replaceHTMLAnchor)
	out = markdownLinkRe.ReplaceAllStringFunc(out, s.replaceMarkdownLink)
	out = autolinkRe.ReplaceAllStringFunc(out, s.replaceAutolink)
	out = s.replaceBareURLs(out)

	return out, s.stats
}

type sanitizer struct {
	index Index
	stats SanitizeStats
}

func (s *sanitizer) resolve(raw string) (linkStatus, string) {
	candidate := strings.TrimSpace(raw)
	if !IsValidHTTPURL(candidate) {
		return linkInvalid, ""
	}

	normalized := NormalizeForMatch(candidate)
	if normalized == "" {
		return linkInvalid, ""
	}

	if canonical, ok := s.index[normalized]; ok {
		return linkTrusted, canonical
	}

	return linkUnmatched, ""
}

func (s *sanitizer) trackUntrusted(status linkStatus) {
	if status == linkInvalid {
		s.stats.Invalid++
	} else {
		s.stats.Unmatched++
	}

	s.stats.Delinked++
}

func (s *sanitizer) replaceHTMLAnchor(match string) string {
	groups := htmlAnchorRe.FindStringSubmatch(match)
	if groups == nil {
		return match
	}

	rawURL := groups[1]
	if rawURL == "" {
		rawURL = groups[2]
	}

	label := normalizeAnchorLabel(groups[3])

	status, canonical := s.resolve(rawURL)
	if status != linkTrusted {
		s.trackUntrusted(status)

		if label == "" {
			return UnverifiedLinkPlaceholder
		}

		return label
	}

	s.stats.HTMLConverted++

	if canonical != strings.TrimSpace(rawURL) {
		s.stats.Rewritten++
	}

	if label == "" {
		label = canonical
	}

	return "[" + escapeMarkdownLabel(label) + "](" + canonical + ")"
}

func (s *sanitizer) replaceMarkdownLink(match string) string {
	groups := markdownLinkRe.FindStringSubmatch(match)
	if groups == nil {
		return match
	}

	label := strings.TrimSpace(groups[1])
	rawURL := strings.TrimSpace(groups[2])

	status, canonical := s.resolve(rawURL)
	if status != linkTrusted {
		s.trackUntrusted(status)

		if label == "" {
			return UnverifiedLinkPlaceholder
		}

		return label
	}

	if canonical == rawURL {
		s.stats.Kept++

		return match
	}

	s.stats.Rewritten++

	return "[" + label + "](" + canonical + ")"
}

func (s *sanitizer) replaceAutolink(match string) string {
	groups := autolinkRe.FindStringSubmatch(match)
	if groups == nil {
		return match
	}

	rawURL := strings.TrimSpace(groups[1])

	status, canonical := s.resolve(rawURL)
	if status != linkTrusted {
		s.trackUntrusted(status)

		return UnverifiedLinkPlaceholder
	}

	if canonical == rawURL {
		s.stats.Kept++

		return match
	}

	s.stats.Rewritten++

	return "<" + canonical + ">"
}

// replaceBareURLs handles URLs in plain text. Matches directly preceded by
// "(" or "<" are left alone: those belong to markdown links and autolinks
// already handled by the earlier passes.
func (s *sanitizer) replaceBareURLs(text string) string {
	matches := bareURLRe.FindAllStringIndex(text, -1)
	if matches == nil {
		return text
	}

	var out strings.Builder

	last := 0

	for _, m := range matches {
		if m[0] > 0 && (text[m[0]-1] == '(' || text[m[0]-1] == '<') {
			continue
		}

		core, trailing := SplitTrailingPunctuation(text[m[0]:m[1]])

		out.WriteString(text[last:m[0]])
		out.WriteString(s.bareReplacement(core, trailing))

		last = m[1]
	}

	out.WriteString(text[last:])

	return out.String()
}

func (s *sanitizer) bareReplacement(core, trailing string) string {
	status, canonical := s.resolve(core)
	if status != linkTrusted {
		s.trackUntrusted(status)

		return UnverifiedLinkPlaceholder + trailing
	}

	if canonical == core {
		s.stats.Kept++

		return core + trailing
	}

	s.stats.Rewritten++

	return canonical + trailing
}

// SplitTrailingPunctuation separates sentence punctuation stuck to the end of
// a bare URL from the URL itself.
func SplitTrailingPunctuation(raw string) (core, trailing string) {
	core = raw

	for core != "" && strings.ContainsRune(trailingPunctuation, rune(core[len(core)-1])) {
		trailing = core[len(core)-1:] + trailing
		core = core[:len(core)-1]
	}

	return core, trailing
}

// normalizeAnchorLabel strips inner tags from an anchor body, unescapes HTML
// entities, and collapses whitespace.
func normalizeAnchorLabel(labelHTML string) string {
	var sb strings.Builder

	tokenizer := html.NewTokenizer(strings.NewReader(labelHTML))

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}

		if tt == html.TextToken {
			sb.Write(tokenizer.Text())
		}
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(sb.String(), " "))
}

func escapeMarkdownLabel(label string) string {
	label = strings.ReplaceAll(label, "[", `\[`)

	return strings.ReplaceAll(label, "]", `\]`)
}
