package weekly

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lueurxax/topic-garden/internal/core/domain"
	"github.com/lueurxax/topic-garden/internal/core/links"
)

// briefsCSVHeader is the column layout of the briefs-articles log. The file
// is append-only; every kept article of every run lands here once.
var briefsCSVHeader = []string{
	"topic", "week_of", "url", "title", "source", "published_utc", "score", "brief_filename", "why", "tags",
}

// loadSeenURLs returns the normalized URLs already logged for a topic. A
// missing file means nothing has been seen yet.
func loadSeenURLs(path, topic string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}

		return nil, fmt.Errorf("open briefs csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return map[string]struct{}{}, nil //nolint:nilerr // empty or headerless file means nothing seen
	}

	urlCol, topicCol := -1, -1

	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "url":
			urlCol = i
		case "topic":
			topicCol = i
		}
	}

	seen := map[string]struct{}{}
	if urlCol < 0 {
		return seen, nil
	}

	for {
		record, err := reader.Read()
		if err != nil {
			break
		}

		if topicCol >= 0 && topicCol < len(record) && strings.TrimSpace(record[topicCol]) != topic {
			continue
		}

		if urlCol >= len(record) {
			continue
		}

		if url := strings.TrimSpace(record[urlCol]); url != "" {
			seen[links.NormalizeForMatch(url)] = struct{}{}
		}
	}

	return seen, nil
}

// appendBriefRows appends kept-article rows, writing the header when the
// file is new.
func appendBriefRows(path string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create csv dir: %w", err)
	}

	info, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr) || (statErr == nil && info.Size() == 0)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open briefs csv: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)

	if isNew {
		if err := writer.Write(briefsCSVHeader); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}

	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush briefs csv: %w", err)
	}

	return nil
}

func briefRows(topic, weekOf, briefFilename string, kept []domain.RankedItem, itemsByID map[string]domain.Item) [][]string {
	rows := make([][]string, 0, len(kept))

	for _, r := range kept {
		url := strings.TrimSpace(itemsByID[r.ID].Link)
		if url == "" {
			url = strings.TrimSpace(r.Link)
		}

		rows = append(rows, []string{
			topic,
			weekOf,
			url,
			r.Title,
			r.Source,
			r.PublishedUTC,
			strconv.FormatFloat(r.Score, 'f', 2, 64),
			briefFilename,
			r.Why,
			strings.Join(r.Tags, "|"),
		})
	}

	return rows
}
