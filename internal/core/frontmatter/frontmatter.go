// Package frontmatter reads and writes the YAML frontmatter block of vault
// documents. Keys are rendered in a fixed order so diffs across repeated
// gardener runs stay minimal.
package frontmatter

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the document's key-value metadata block. Values are treated
// as an opaque YAML-compatible store; nil values are skipped on render.
type Frontmatter map[string]any

var blockRe = regexp.MustCompile(`(?s)^---\n(.*?)\n---\n?`)

// keyOrder fixes the render order of known keys; unknown keys follow sorted.
var keyOrder = []string{
	"title",
	"date",
	"lastmod",
	"updated",
	"tags",
	"generator",
	"period",
	"topic",
	"week_of",
	"month",
	"year",
	"included",
	"scored",
	"llm_backend",
	"llm_model",
	"sources",
	"links_to",
}

// Split separates the frontmatter block from the document body. Documents
// without a parseable block return an empty Frontmatter and the full text.
func Split(markdown string) (Frontmatter, string) {
	if !strings.HasPrefix(markdown, "---\n") {
		return Frontmatter{}, markdown
	}

	// A zero-key block ("---\n---") has no inner line for blockRe to match.
	if rest, ok := strings.CutPrefix(markdown, "---\n---\n"); ok {
		return Frontmatter{}, rest
	}

	if markdown == "---\n---" {
		return Frontmatter{}, ""
	}

	loc := blockRe.FindStringSubmatchIndex(markdown)
	if loc == nil {
		return Frontmatter{}, markdown
	}

	fm := Frontmatter{}
	if err := yaml.Unmarshal([]byte(markdown[loc[2]:loc[3]]), &fm); err != nil {
		return Frontmatter{}, markdown
	}

	return fm, markdown[loc[1]:]
}

// Render serializes the frontmatter with the fixed key order.
func Render(fm Frontmatter) string {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	for _, key := range orderedKeys(fm) {
		value := fm[key]
		if value == nil {
			continue
		}

		valueNode := &yaml.Node{}
		if err := valueNode.Encode(value); err != nil {
			continue
		}

		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
		root.Content = append(root.Content, keyNode, valueNode)
	}

	if len(root.Content) == 0 {
		return "---\n---"
	}

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(root); err != nil {
		return "---\n---"
	}

	_ = enc.Close()

	return "---\n" + strings.TrimRight(buf.String(), "\n") + "\n---"
}

// With replaces the document's frontmatter, keeping the body.
func With(markdown string, fm Frontmatter) string {
	_, body := Split(markdown)
	body = strings.TrimLeft(body, "\n")

	out := Render(fm)
	if body != "" {
		out += "\n\n" + body
	}

	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}

	return out
}

// StringList coerces a frontmatter value into a list of non-empty strings.
func StringList(value any) []string {
	var out []string

	appendValue := func(v any) {
		s, ok := v.(string)
		if !ok {
			return
		}

		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	switch list := value.(type) {
	case []string:
		for _, v := range list {
			appendValue(v)
		}
	case []any:
		for _, v := range list {
			appendValue(v)
		}
	}

	return out
}

// String coerces a frontmatter value into a trimmed string.
func String(value any) string {
	s, ok := value.(string)
	if !ok {
		return ""
	}

	return strings.TrimSpace(s)
}

func orderedKeys(fm Frontmatter) []string {
	fixed := make([]string, 0, len(fm))
	seen := make(map[string]struct{}, len(keyOrder))

	for _, key := range keyOrder {
		seen[key] = struct{}{}

		if _, ok := fm[key]; ok {
			fixed = append(fixed, key)
		}
	}

	var remaining []string

	for key := range fm {
		if _, ok := seen[key]; !ok {
			remaining = append(remaining, key)
		}
	}

	sort.Strings(remaining)

	return append(fixed, remaining...)
}
