package brief

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lueurxax/topic-garden/internal/core/domain"
)

func TestRenderBrief(t *testing.T) {
	result := domain.TriageResult{
		WeekOf: "2026-01-05",
		Notes:  "Quiet week overall.",
		Ranked: []domain.RankedItem{
			{ID: "a", Title: "Big result", Link: "https://a.com/1", Source: "Journal", Score: 0.9, Why: "Directly relevant.", Tags: []string{"crispr"}, PublishedUTC: "2026-01-03T10:00:00Z"},
			{ID: "b", Title: "Weak result", Link: "https://b.com/2", Source: "Blog", Score: 0.2},
		},
		LLMBackend: "openai",
		LLMModel:   "gpt-4o-mini",
	}
	kept := result.Ranked[:1]
	items := map[string]domain.Item{"a": {ID: "a", Summary: "An RSS summary."}}

	out := Render(result, items, kept, "alpha", 0.65, "2026-01-09")

	assert.Contains(t, out, "# ALPHA Weekly Brief (week of 2026-01-05)")
	assert.Contains(t, out, "Quiet week overall.")
	assert.Contains(t, out, "**Included:** 1 (score ≥ 0.65)  ")
	assert.Contains(t, out, "**Scored:** 2 total items")
	assert.Contains(t, out, "## [Big result](https://a.com/1)")
	assert.Contains(t, out, "*Journal*  ")
	assert.Contains(t, out, "Score: **0.90**  \nPublished: 2026-01-03T10:00:00Z")
	assert.Contains(t, out, "Tags: crispr")
	assert.Contains(t, out, "Directly relevant.")
	assert.Contains(t, out, "<summary>RSS summary</summary>")
	assert.Contains(t, out, "week_of: \"2026-01-05\"")
	assert.Contains(t, out, "included: 1")
	assert.Contains(t, out, "scored: 2")
	assert.Contains(t, out, "generator: topic-garden-weekly")
	assert.Contains(t, out, "llm_model: gpt-4o-mini")
	assert.NotContains(t, out, "Weak result")
}

func TestRenderBriefEmptyWeek(t *testing.T) {
	result := domain.TriageResult{WeekOf: "2026-01-05", LLMBackend: "openai", LLMModel: "gpt-4o-mini"}

	out := Render(result, nil, nil, "alpha", 0.65, "2026-01-09")

	assert.Contains(t, out, "_No items met the relevance threshold this week._")
	assert.Contains(t, out, "included: 0")
	assert.Contains(t, out, "tags: []")
}

func TestAggregateRankedItemTags(t *testing.T) {
	items := []domain.RankedItem{
		{Tags: []string{"CRISPR", "oncology"}},
		{Tags: []string{"crispr"}},
		{},
	}

	assert.Equal(t, []string{"crispr", "oncology"}, AggregateRankedItemTags(items))
}

func TestMetadataRowsPrefersItemLink(t *testing.T) {
	kept := []domain.RankedItem{
		{ID: "a", Title: "Kept", Link: "https://ranked.com/a"},
		{ID: "b", Title: ""},
		{ID: "c", Title: "No link"},
	}
	items := map[string]domain.Item{"a": {ID: "a", Link: "https://item.com/a"}}

	rows := MetadataRows(briefFile, kept, items)

	assert.Equal(t, []MetadataRow{{BriefFilename: briefFile, Title: "Kept", URL: "https://item.com/a"}}, rows)
}
