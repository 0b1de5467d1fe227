package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAndRenderRoundTrip(t *testing.T) {
	doc := `---
title: Gene Therapy
date: "2026-01-05"
tags:
  - gene-therapy
  - crispr
sources:
  - https://example.com/a
---

- Fact one. [^1]

[^1]: https://example.com/a
`

	fm, body := Split(doc)

	require.NotEmpty(t, fm)
	assert.Equal(t, "Gene Therapy", String(fm["title"]))
	assert.Equal(t, []string{"gene-therapy", "crispr"}, StringList(fm["tags"]))
	assert.Equal(t, "\n- Fact one. [^1]\n\n[^1]: https://example.com/a\n", body)

	again, againBody := Split(With(doc, fm))
	assert.Equal(t, fm, again)
	assert.Equal(t, "- Fact one. [^1]\n\n[^1]: https://example.com/a\n", againBody)
}

func TestSplitWithoutBlock(t *testing.T) {
	fm, body := Split("- Just a bullet.\n")

	assert.Empty(t, fm)
	assert.Equal(t, "- Just a bullet.\n", body)
}

func TestSplitUnparseableBlockKeepsText(t *testing.T) {
	doc := "---\ntitle: [unclosed\n---\nbody\n"

	fm, body := Split(doc)

	assert.Empty(t, fm)
	assert.Equal(t, doc, body)
}

func TestRenderKeyOrderIsStable(t *testing.T) {
	fm := Frontmatter{
		"sources":  []string{"https://example.com/a"},
		"zebra":    "last",
		"title":    "T",
		"aardvark": "first-extra",
		"date":     "2026-01-05",
	}

	want := `---
title: T
date: "2026-01-05"
sources:
  - https://example.com/a
aardvark: first-extra
zebra: last
---`

	assert.Equal(t, want, Render(fm))
	assert.Equal(t, Render(fm), Render(fm))
}

func TestRenderSkipsNilAndKeepsEmptyLists(t *testing.T) {
	fm := Frontmatter{
		"title":   "T",
		"updated": nil,
		"tags":    []string{},
	}

	assert.Equal(t, "---\ntitle: T\ntags: []\n---", Render(fm))
}

func TestRenderEmpty(t *testing.T) {
	assert.Equal(t, "---\n---", Render(Frontmatter{}))
}

func TestSplitEmptyBlock(t *testing.T) {
	fm, body := Split("---\n---\n\nBody text.\n")

	assert.Empty(t, fm)
	assert.Equal(t, "\nBody text.\n", body)

	fm, body = Split("---\n---")

	assert.Empty(t, fm)
	assert.Empty(t, body)
}

func TestWithEmptyFrontmatterRoundTrip(t *testing.T) {
	out := With("Body text.", Frontmatter{})

	assert.Equal(t, "---\n---\n\nBody text.\n", out)

	fm, body := Split(out)

	assert.Empty(t, fm)
	assert.Equal(t, "\nBody text.\n", body)

	// Replacing the empty block again is stable, not cumulative.
	assert.Equal(t, out, With(out, Frontmatter{}))
}

func TestWithReplacesExistingBlock(t *testing.T) {
	doc := "---\ntitle: Old\n---\n\n- Fact.\n"

	got := With(doc, Frontmatter{"title": "New"})

	assert.Equal(t, "---\ntitle: New\n---\n\n- Fact.\n", got)
}

func TestWithEmptyBody(t *testing.T) {
	assert.Equal(t, "---\ntitle: T\n---\n", With("", Frontmatter{"title": "T"}))
}

func TestStringList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, StringList([]any{"a", " b ", "", 3}))
	assert.Equal(t, []string{"a"}, StringList([]string{"a"}))
	assert.Empty(t, StringList("not a list"))
	assert.Empty(t, StringList(nil))
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"Gene Therapy", "gene_therapy", "  CRISPR/Cas9 ", "--", ""})

	assert.Equal(t, []string{"gene-therapy", "crispr-cas9"}, got)
}

func TestNormalizeTagsCap(t *testing.T) {
	tags := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		tags = append(tags, string(rune('a'+i)))
	}

	assert.Len(t, NormalizeTags(tags), 12)
}

func TestAggregateTagsRanksByFrequency(t *testing.T) {
	got := AggregateTags([][]string{
		{"crispr", "oncology"},
		{"crispr", "trials"},
		{"oncology", "crispr"},
	})

	assert.Equal(t, []string{"crispr", "oncology", "trials"}, got)
}
