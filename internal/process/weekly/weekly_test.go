package weekly

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/topic-garden/internal/core/domain"
	"github.com/lueurxax/topic-garden/internal/core/llm"
	"github.com/lueurxax/topic-garden/internal/output/brief"
	"github.com/lueurxax/topic-garden/internal/platform/config"
	"github.com/lueurxax/topic-garden/internal/platform/observability"
	"github.com/lueurxax/topic-garden/internal/process/gardener"
	"github.com/lueurxax/topic-garden/internal/storage/vault"
)

func TestParseWeekSpec(t *testing.T) {
	monday, err := ParseWeekSpec("2026 week 2")

	require.NoError(t, err)
	assert.Equal(t, "2026-01-05", monday.Format(dateLayout))
	assert.Equal(t, time.Monday, monday.Weekday())

	// Week 1 of 2026 starts in December 2025.
	monday, err = ParseWeekSpec("2026 week 1")

	require.NoError(t, err)
	assert.Equal(t, "2025-12-29", monday.Format(dateLayout))

	// Case-insensitive, tolerant of surrounding whitespace.
	monday, err = ParseWeekSpec("  2026 WEEK 10 ")

	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", monday.Format(dateLayout))
}

func TestParseWeekSpecInvalid(t *testing.T) {
	for _, spec := range []string{"", "week 5", "2026 week 0", "2026 week 54", "2026-W02"} {
		_, err := ParseWeekSpec(spec)

		assert.ErrorIs(t, err, ErrInvalidWeekSpec, spec)
	}

	// 2021 only has 52 ISO weeks.
	_, err := ParseWeekSpec("2021 week 53")

	assert.ErrorIs(t, err, ErrInvalidWeekSpec)
}

func TestCurrentWeekStart(t *testing.T) {
	sunday := time.Date(2026, 8, 23, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, "2026-08-17", currentWeekStart(sunday).Format(dateLayout))

	monday := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-08-17", currentWeekStart(monday).Format(dateLayout))
}

func TestRecordStatsExportEveryOutcome(t *testing.T) {
	unchangedBefore := testutil.ToFloat64(observability.HeadingResolutions.WithLabelValues("unchanged"))
	filesBefore := testutil.ToFloat64(observability.MentionsApplied.WithLabelValues("files_updated"))

	recordHeadingStats(brief.HeadingStats{Unchanged: 2})
	recordMentionStats(gardener.MentionStats{FilesUpdated: 3})

	assert.Equal(t, unchangedBefore+2, testutil.ToFloat64(observability.HeadingResolutions.WithLabelValues("unchanged")))
	assert.Equal(t, filesBefore+3, testutil.ToFloat64(observability.MentionsApplied.WithLabelValues("files_updated")))
}

func TestKeepTop(t *testing.T) {
	ranked := []domain.RankedItem{
		{ID: "low", Score: 0.3},
		{ID: "top", Score: 0.95},
		{ID: "mid", Score: 0.7},
	}

	kept := keepTop(ranked, 0.65, 40)

	require.Len(t, kept, 2)
	assert.Equal(t, "top", kept[0].ID)
	assert.Equal(t, "mid", kept[1].ID)

	assert.Len(t, keepTop(ranked, 0.0, 1), 1)
	assert.Empty(t, keepTop(ranked, 0.99, 40))
}

func TestDedupeByNormalizedURL(t *testing.T) {
	items := []domain.Item{
		{ID: "a", Link: "https://a.com/one?utm_source=rss"},
		{ID: "b", Link: "https://a.com/one"},
		{ID: "c", Link: "https://b.com/two"},
	}

	out, dropped := dedupeByNormalizedURL(items)

	require.Len(t, out, 2)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "c", out[1].ID)
}

type stubFetcher struct {
	items []domain.Item
}

func (s *stubFetcher) FetchAll(_ context.Context, _ []string, _ time.Time) ([]domain.Item, error) {
	return s.items, nil
}

func testConfig() *config.Config {
	return &config.Config{
		MinScoreRead:                0.5,
		MaxReturned:                 40,
		TopicRedundancy:             true,
		TopicRedundancyLookbackDays: 56,
		TopicRedundancyBatchSize:    25,
		TopicGardener:               true,
	}
}

func writeTopicConfig(t *testing.T, root, topic string) {
	t.Helper()

	cfgDir := filepath.Join(root, "config")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "feeds."+topic+".txt"), []byte("https://example.com/feed\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "interests."+topic+".md"), []byte("Quantum computing breakthroughs.\n"), 0o644))
}

func testItems() []domain.Item {
	return []domain.Item{
		{ID: "a1", Title: "Article A", Link: "https://a.com/one", Source: "Feed A", Summary: "Summary A"},
		{ID: "b1", Title: "Article B", Link: "https://b.com/two", Source: "Feed B", Summary: "Summary B"},
	}
}

func testRanked() []domain.RankedItem {
	return []domain.RankedItem{
		{ID: "a1", Title: "Article A", Link: "https://a.com/one", Source: "Feed A", Score: 0.9, Why: "matches interests", Tags: []string{"Quantum"}},
		{ID: "b1", Title: "Article B", Link: "https://b.com/two", Source: "Feed B", Score: 0.2, Why: "off topic"},
	}
}

func TestRunFullPipeline(t *testing.T) {
	root := t.TempDir()
	writeTopicConfig(t, root, "quantum")

	logger := zerolog.Nop()
	v := vault.New(root, &logger)

	client := &llm.MockClient{}
	client.On("Triage", mock.Anything, mock.Anything).
		Return(domain.TriageResult{Ranked: testRanked(), LLMBackend: "openai", LLMModel: "gpt-4o-mini"}, nil)
	client.On("Provenance").Return(domain.Provenance{Backend: "openai", Model: "gpt-4o-mini"})
	client.On("ProposeTopicActions", mock.Anything, mock.Anything).
		Return([]domain.TopicAction{{
			Action:       domain.ActionCreate,
			Slug:         "quantum-error-correction",
			Title:        "Quantum Error Correction",
			BodyMarkdown: "- New code reduces overhead.",
			Sources:      []string{"https://a.com/one"},
		}}, nil)

	runner := NewRunner(testConfig(), v, client, &stubFetcher{items: testItems()}, nil, &logger)

	result, err := runner.Run(context.Background(), RunOptions{Topic: "quantum", WeekSpec: "2026 week 2"})

	require.NoError(t, err)
	assert.Equal(t, "2026-01-05", result.WeekOf)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Scored)
	assert.Equal(t, 1, result.Kept)
	assert.Equal(t, 1, result.ActionsApplied)

	data, err := os.ReadFile(result.BriefPath)

	require.NoError(t, err)
	assert.Contains(t, string(data), "# QUANTUM Weekly Brief (week of 2026-01-05)")
	assert.Contains(t, string(data), "[Article A](https://a.com/one)")
	assert.NotContains(t, string(data), "Article B")

	seen, err := loadSeenURLs(v.BriefsArticlesCSV(), "quantum")

	require.NoError(t, err)
	assert.Len(t, seen, 1)

	assert.True(t, v.TopicExists("quantum-error-correction"))

	// No topic notes existed before the run, so redundancy never fires.
	client.AssertNotCalled(t, "DetectRedundancy")
}

func TestRunDryRunSkipsSideEffects(t *testing.T) {
	root := t.TempDir()
	writeTopicConfig(t, root, "quantum")

	logger := zerolog.Nop()
	v := vault.New(root, &logger)

	client := &llm.MockClient{}
	client.On("Triage", mock.Anything, mock.Anything).
		Return(domain.TriageResult{Ranked: testRanked()}, nil)

	runner := NewRunner(testConfig(), v, client, &stubFetcher{items: testItems()}, nil, &logger)

	result, err := runner.Run(context.Background(), RunOptions{Topic: "quantum", WeekSpec: "2026 week 2", DryRun: true})

	require.NoError(t, err)
	assert.FileExists(t, result.BriefPath)

	_, statErr := os.Stat(v.BriefsArticlesCSV())

	assert.True(t, os.IsNotExist(statErr))
	client.AssertNotCalled(t, "DetectRedundancy")
	client.AssertNotCalled(t, "ProposeTopicActions")
}

func TestRunRedundancyFiltering(t *testing.T) {
	root := t.TempDir()
	writeTopicConfig(t, root, "quantum")

	logger := zerolog.Nop()
	v := vault.New(root, &logger)

	topicDoc := `---
title: Superconductors
---

- Room-temperature claims remain unreplicated. [^1]

[^1]: https://s.com/base
`
	require.NoError(t, v.WriteTopic("superconductors", topicDoc))

	client := &llm.MockClient{}
	client.On("DetectRedundancy", mock.Anything, mock.Anything).
		Return(llm.RedundancyResult{
			RedundantIDs: []string{"b1"},
			Mentions: []domain.RedundantMention{{
				ID:                "b1",
				TopicSlug:         "superconductors",
				MatchedFactBullet: "Room-temperature claims remain unreplicated.",
				SourceURL:         "https://b.com/two",
			}},
		}, nil)
	client.On("Triage", mock.Anything, mock.MatchedBy(func(req llm.TriageRequest) bool {
		return len(req.Items) == 1 && req.Items[0].ID == "a1"
	})).Return(domain.TriageResult{Ranked: testRanked()[:1]}, nil)

	cfg := testConfig()
	cfg.TopicGardener = false

	runner := NewRunner(cfg, v, client, &stubFetcher{items: testItems()}, nil, &logger)

	result, err := runner.Run(context.Background(), RunOptions{Topic: "quantum", WeekSpec: "2026 week 2"})

	require.NoError(t, err)
	assert.Equal(t, 1, result.RedundantDropped)
	assert.Equal(t, 1, result.Mentions.Applied)
	assert.Equal(t, 1, result.Kept)

	content, err := v.ReadTopic("superconductors")

	require.NoError(t, err)
	assert.Contains(t, content, "[^2]: https://b.com/two")

	data, err := os.ReadFile(result.BriefPath)

	require.NoError(t, err)
	assert.NotContains(t, string(data), "Article B")
}
