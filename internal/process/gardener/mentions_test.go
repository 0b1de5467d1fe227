package gardener

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/topic-garden/internal/core/domain"
)

const mentionTopicDoc = `---
title: CRISPR Trials
sources:
  - https://a.com/one
---

- Existing fact. [^1]
- Other fact.

[^1]: https://a.com/one
`

func TestApplyMentionsAddsCitation(t *testing.T) {
	a, v := newTestApplier(t)

	require.NoError(t, v.WriteTopic("crispr-trials", mentionTopicDoc))

	stats := a.ApplyMentions([]domain.RedundantMention{{
		TopicSlug:         "crispr-trials",
		MatchedFactBullet: "Existing fact.",
		SourceURL:         "https://b.com/two",
	}}, "2026-08-23")

	assert.Equal(t, 1, stats.Applied)
	assert.Equal(t, 1, stats.FilesUpdated)

	content, err := v.ReadTopic("crispr-trials")

	require.NoError(t, err)
	assert.Contains(t, content, "- Existing fact. [^1][^2]")
	assert.Contains(t, content, "[^2]: https://b.com/two")
	assert.Contains(t, content, "- https://b.com/two")
	assert.Contains(t, content, "lastmod: \"2026-08-23\"")
}

func TestApplyMentionsIsIdempotent(t *testing.T) {
	a, v := newTestApplier(t)

	require.NoError(t, v.WriteTopic("crispr-trials", mentionTopicDoc))

	mention := domain.RedundantMention{
		TopicSlug:         "crispr-trials",
		MatchedFactBullet: "- Existing fact. [^1]",
		SourceURL:         "https://b.com/two",
	}

	first := a.ApplyMentions([]domain.RedundantMention{mention}, "2026-08-23")

	require.Equal(t, 1, first.Applied)

	afterFirst, err := v.ReadTopic("crispr-trials")
	require.NoError(t, err)

	second := a.ApplyMentions([]domain.RedundantMention{mention}, "2026-08-23")

	assert.Zero(t, second.Applied)
	assert.Equal(t, 1, second.AlreadyRecorded)
	assert.Zero(t, second.FilesUpdated)

	afterSecond, err := v.ReadTopic("crispr-trials")

	require.NoError(t, err)
	assert.Equal(t, afterFirst, afterSecond)
}

func TestApplyMentionsReusesFootnoteIndex(t *testing.T) {
	a, v := newTestApplier(t)

	require.NoError(t, v.WriteTopic("crispr-trials", mentionTopicDoc))

	stats := a.ApplyMentions([]domain.RedundantMention{{
		TopicSlug:         "crispr-trials",
		MatchedFactBullet: "Other fact.",
		SourceURL:         "https://a.com/one",
	}}, "2026-08-23")

	assert.Equal(t, 1, stats.Applied)

	content, err := v.ReadTopic("crispr-trials")

	require.NoError(t, err)
	assert.Contains(t, content, "- Other fact. [^1]")
	assert.Equal(t, 1, strings.Count(content, "[^1]: https://a.com/one"))
}

func TestApplyMentionsMissingTopicAndBullet(t *testing.T) {
	a, v := newTestApplier(t)

	require.NoError(t, v.WriteTopic("crispr-trials", mentionTopicDoc))

	stats := a.ApplyMentions([]domain.RedundantMention{
		{TopicSlug: "no-such-topic", MatchedFactBullet: "Existing fact.", SourceURL: "https://b.com/two"},
		{TopicSlug: "crispr-trials", MatchedFactBullet: "Fact nobody wrote.", SourceURL: "https://b.com/two"},
		{TopicSlug: "crispr-trials", MatchedFactBullet: "", SourceURL: "https://b.com/two"},
	}, "2026-08-23")

	assert.Equal(t, 1, stats.MissingTopic)
	assert.Equal(t, 1, stats.MissingBullet)
	assert.Equal(t, 1, stats.Invalid)
	assert.Zero(t, stats.Applied)
	assert.Zero(t, stats.FilesUpdated)
}

func TestApplyMentionsPreservesMentionsSuffix(t *testing.T) {
	a, v := newTestApplier(t)

	doc := "---\ntitle: T\n---\n\n- Existing fact. [^1] _(mentions: 3 sources)_\n\n[^1]: https://a.com/one\n"
	require.NoError(t, v.WriteTopic("crispr-trials", doc))

	stats := a.ApplyMentions([]domain.RedundantMention{{
		TopicSlug:         "crispr-trials",
		MatchedFactBullet: "Existing fact.",
		SourceURL:         "https://b.com/two",
	}}, "2026-08-23")

	require.Equal(t, 1, stats.Applied)

	content, err := v.ReadTopic("crispr-trials")

	require.NoError(t, err)
	assert.Contains(t, content, "- Existing fact. [^1][^2] _(mentions: 3 sources)_")
}

func TestDedupeMentions(t *testing.T) {
	mentions := []domain.RedundantMention{
		{TopicSlug: "crispr_trials", MatchedFactBullet: "Fact.", SourceURL: "https://b.com/two"},
		{TopicSlug: "crispr-trials", MatchedFactBullet: " Fact. ", SourceURL: "https://b.com/two"},
		{TopicSlug: "crispr-trials", MatchedFactBullet: "Fact.", SourceURL: "https://c.com/three"},
	}

	deduped := DedupeMentions(mentions)

	require.Len(t, deduped, 2)
	assert.Equal(t, "https://b.com/two", deduped[0].SourceURL)
	assert.Equal(t, "https://c.com/three", deduped[1].SourceURL)
}
