package brief

import (
	"fmt"
	"strings"

	"github.com/lueurxax/topic-garden/internal/core/domain"
	"github.com/lueurxax/topic-garden/internal/core/frontmatter"
)

const generatorName = "topic-garden-weekly"

// Render produces the weekly brief markdown for one topic: a header with
// triage counts, one `## [Title](link)` section per kept item, and
// frontmatter carrying the week's metadata and aggregated tags.
func Render(result domain.TriageResult, itemsByID map[string]domain.Item, kept []domain.RankedItem, topic string, minScore float64, today string) string {
	title := fmt.Sprintf("%s Weekly Brief (week of %s)", strings.ToUpper(topic), result.WeekOf)

	lines := []string{"# " + title, ""}

	if notes := strings.TrimSpace(result.Notes); notes != "" {
		lines = append(lines, notes, "")
	}

	lines = append(lines,
		fmt.Sprintf("**Included:** %d (score ≥ %.2f)  ", len(kept), minScore),
		fmt.Sprintf("**Scored:** %d total items", len(result.Ranked)),
		"",
		"---",
		"",
	)

	if len(kept) == 0 {
		lines = append(lines, "_No items met the relevance threshold this week._", "")
	}

	for _, r := range kept {
		lines = append(lines, itemSection(r, itemsByID[r.ID])...)
	}

	tagSource := kept
	if len(tagSource) == 0 {
		tagSource = result.Ranked
	}

	fm := frontmatter.Frontmatter{
		"title":       title,
		"date":        result.WeekOf,
		"lastmod":     today,
		"tags":        AggregateRankedItemTags(tagSource),
		"generator":   generatorName,
		"period":      "weekly",
		"topic":       topic,
		"week_of":     result.WeekOf,
		"included":    len(kept),
		"scored":      len(result.Ranked),
		"llm_backend": result.LLMBackend,
		"llm_model":   result.LLMModel,
	}

	return frontmatter.With(strings.Join(lines, "\n"), fm)
}

func itemSection(r domain.RankedItem, item domain.Item) []string {
	scoreLine := fmt.Sprintf("Score: **%.2f**", r.Score)
	if r.PublishedUTC != "" {
		scoreLine += "  \nPublished: " + r.PublishedUTC
	}

	tagsLine := ""
	if len(r.Tags) > 0 {
		tagsLine = "Tags: " + strings.Join(r.Tags, ", ")
	}

	lines := []string{
		fmt.Sprintf("## [%s](%s)", r.Title, r.Link),
		fmt.Sprintf("*%s*  ", r.Source),
		scoreLine,
		tagsLine,
		"",
		strings.TrimSpace(r.Why),
		"",
	}

	if summary := strings.TrimSpace(item.Summary); summary != "" {
		lines = append(lines, "<details>", "<summary>RSS summary</summary>", "", summary, "", "</details>", "")
	}

	return append(lines, "---", "")
}

// AggregateRankedItemTags merges per-item tag lists into the brief's tag
// list, ranked by how many items carry each tag.
func AggregateRankedItemTags(items []domain.RankedItem) []string {
	tagLists := make([][]string, 0, len(items))

	for _, item := range items {
		if len(item.Tags) > 0 {
			tagLists = append(tagLists, item.Tags)
		}
	}

	return frontmatter.AggregateTags(tagLists)
}

// MetadataRows builds the heading-resolution rows for a brief from the kept
// items, preferring the fetched item's link over the triage row's.
func MetadataRows(briefFilename string, kept []domain.RankedItem, itemsByID map[string]domain.Item) []MetadataRow {
	rows := make([]MetadataRow, 0, len(kept))

	for _, r := range kept {
		item := itemsByID[r.ID]

		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = strings.TrimSpace(item.Title)
		}

		if title == "" {
			continue
		}

		url := strings.TrimSpace(item.Link)
		if url == "" {
			url = strings.TrimSpace(r.Link)
		}

		if url == "" {
			continue
		}

		rows = append(rows, MetadataRow{BriefFilename: briefFilename, Title: title, URL: url})
	}

	return rows
}
