package weekly

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/topic-garden/internal/core/domain"
)

func TestLoadSeenURLsMissingFile(t *testing.T) {
	seen, err := loadSeenURLs(filepath.Join(t.TempDir(), "briefs_articles.csv"), "quantum")

	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestAppendAndLoadSeenURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "briefs_articles.csv")

	kept := []domain.RankedItem{
		{ID: "a", Title: "Article A", Link: "https://a.com/one?utm_source=rss", Source: "Feed A", Score: 0.91, Why: "on topic", Tags: []string{"ai"}},
		{ID: "b", Title: "Article B", Link: "https://b.com/two", Source: "Feed B", Score: 0.72},
	}
	itemsByID := map[string]domain.Item{
		"a": {ID: "a", Link: "https://a.com/one", PublishedUTC: time.Now()},
	}

	rows := briefRows("quantum", "2026-01-05", "2026-01-05_quantum_weekly-brief.md", kept, itemsByID)
	require.Len(t, rows, 2)

	// The fetched item's link wins over the triage row's link.
	assert.Equal(t, "https://a.com/one", rows[0][2])
	assert.Equal(t, "https://b.com/two", rows[1][2])
	assert.Equal(t, "0.91", rows[0][6])
	assert.Equal(t, "ai", rows[0][9])

	require.NoError(t, appendBriefRows(path, rows))

	seen, err := loadSeenURLs(path, "quantum")

	require.NoError(t, err)
	assert.Len(t, seen, 2)

	otherTopic, err := loadSeenURLs(path, "fusion")

	require.NoError(t, err)
	assert.Empty(t, otherTopic)
}

func TestAppendBriefRowsHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "briefs_articles.csv")

	row := [][]string{{"quantum", "2026-01-05", "https://a.com/one", "A", "Feed", "", "0.90", "brief.md", "why", ""}}

	require.NoError(t, appendBriefRows(path, row))
	require.NoError(t, appendBriefRows(path, row))

	data, err := os.ReadFile(path)

	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "topic,week_of,url"))

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Len(t, lines, 3) // header plus one row per append
}

func TestAppendBriefRowsEmptyNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "briefs_articles.csv")

	require.NoError(t, appendBriefRows(path, nil))

	_, err := os.Stat(path)

	assert.True(t, os.IsNotExist(err))
}
