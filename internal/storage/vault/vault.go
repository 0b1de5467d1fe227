// Package vault is the filesystem layout of the markdown knowledge base:
// per-topic feed and interest config, topic note files, and weekly brief
// output directories.
package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	configDirName  = "config"
	contentDirName = "content"
	briefsDirName  = "briefs"
	topicsDirName  = "topics"

	briefsArticlesCSVName = "briefs_articles.csv"

	dirPerm  = 0o755
	filePerm = 0o644
)

// ErrTopicNotFound is returned when a topic note does not exist on disk.
var ErrTopicNotFound = errors.New("topic note not found")

// Vault is rooted at a directory and owns all path construction beneath it.
type Vault struct {
	root   string
	logger *zerolog.Logger
}

// New returns a vault rooted at root. The directory does not have to exist
// yet; writes create what they need.
func New(root string, logger *zerolog.Logger) *Vault {
	return &Vault{root: root, logger: logger}
}

// Root returns the vault root directory.
func (v *Vault) Root() string { return v.root }

// ConfigDir holds feeds.<topic>.txt and interests.<topic>.md files.
func (v *Vault) ConfigDir() string { return filepath.Join(v.root, configDirName) }

// BriefsDir holds weekly brief files for all topics; the topic is encoded in
// the filename.
func (v *Vault) BriefsDir() string { return filepath.Join(v.root, contentDirName, briefsDirName) }

// TopicsDir holds one markdown note per topic slug.
func (v *Vault) TopicsDir() string { return filepath.Join(v.root, contentDirName, topicsDirName) }

// FeedsPath is the feed URL list for a topic.
func (v *Vault) FeedsPath(topic string) string {
	return filepath.Join(v.ConfigDir(), fmt.Sprintf("feeds.%s.txt", topic))
}

// InterestsPath is the free-form interest statement for a topic.
func (v *Vault) InterestsPath(topic string) string {
	return filepath.Join(v.ConfigDir(), fmt.Sprintf("interests.%s.md", topic))
}

// BriefsArticlesCSV is the shared log of every article kept in a brief.
func (v *Vault) BriefsArticlesCSV() string {
	return filepath.Join(v.ConfigDir(), briefsArticlesCSVName)
}

// BriefFilename names a weekly brief file for a topic and ISO week start.
func BriefFilename(weekOf, topic string) string {
	return fmt.Sprintf("%s_%s_weekly-brief.md", weekOf, topic)
}

// MonthlyRoundupFilename names a monthly roundup file for a topic and the
// period's end date.
func MonthlyRoundupFilename(endDate, topic string) string {
	return fmt.Sprintf("%s_%s_monthly-roundup.md", endDate, topic)
}

// AnnualReviewFilename names an annual review file for a topic and year.
func AnnualReviewFilename(year int, topic string) string {
	return fmt.Sprintf("%d_%s_annual-review.md", year, topic)
}

// BriefPath is the full path of a weekly brief file.
func (v *Vault) BriefPath(weekOf, topic string) string {
	return filepath.Join(v.BriefsDir(), BriefFilename(weekOf, topic))
}

// TopicPath is the note file for a topic slug.
func (v *Vault) TopicPath(slug string) string {
	return filepath.Join(v.TopicsDir(), slug+".md")
}

// ListTopics returns topics that have both a feeds list and an interests
// file, sorted alphabetically.
func (v *Vault) ListTopics() ([]string, error) {
	entries, err := os.ReadDir(v.ConfigDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read config dir: %w", err)
	}

	feeds := make(map[string]struct{})
	interests := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		switch {
		case strings.HasPrefix(name, "feeds.") && strings.HasSuffix(name, ".txt"):
			feeds[strings.TrimSuffix(strings.TrimPrefix(name, "feeds."), ".txt")] = struct{}{}
		case strings.HasPrefix(name, "interests.") && strings.HasSuffix(name, ".md"):
			interests[strings.TrimSuffix(strings.TrimPrefix(name, "interests."), ".md")] = struct{}{}
		}
	}

	var topics []string

	for topic := range feeds {
		if topic == "" {
			continue
		}

		if _, ok := interests[topic]; ok {
			topics = append(topics, topic)
		}
	}

	sort.Strings(topics)

	return topics, nil
}

// LoadFeeds reads the feed URL list for a topic, skipping blank lines and
// "#" comments.
func (v *Vault) LoadFeeds(topic string) ([]string, error) {
	data, err := os.ReadFile(v.FeedsPath(topic))
	if err != nil {
		return nil, fmt.Errorf("read feeds for %q: %w", topic, err)
	}

	var urls []string

	for _, rawLine := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		urls = append(urls, line)
	}

	return urls, nil
}

// LoadInterests reads the interest statement for a topic.
func (v *Vault) LoadInterests(topic string) (string, error) {
	data, err := os.ReadFile(v.InterestsPath(topic))
	if err != nil {
		return "", fmt.Errorf("read interests for %q: %w", topic, err)
	}

	return strings.TrimSpace(string(data)), nil
}

// ReadTopic returns the full text of a topic note. Missing notes map to
// ErrTopicNotFound so callers can treat them as a skip rather than a failure.
func (v *Vault) ReadTopic(slug string) (string, error) {
	data, err := os.ReadFile(v.TopicPath(slug))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrTopicNotFound, slug)
		}

		return "", fmt.Errorf("read topic %q: %w", slug, err)
	}

	return string(data), nil
}

// WriteTopic writes the full text of a topic note, creating the topics
// directory if needed.
func (v *Vault) WriteTopic(slug, content string) error {
	return v.writeFile(v.TopicPath(slug), content)
}

// TopicExists reports whether a topic note is present on disk.
func (v *Vault) TopicExists(slug string) bool {
	info, err := os.Stat(v.TopicPath(slug))

	return err == nil && !info.IsDir()
}

// WriteBrief writes a weekly brief file, creating the briefs directory if
// needed.
func (v *Vault) WriteBrief(weekOf, topic, content string) (string, error) {
	path := v.BriefPath(weekOf, topic)
	if err := v.writeFile(path, content); err != nil {
		return "", err
	}

	return path, nil
}

// WriteRoundup writes a roundup document into the briefs directory under
// the given filename.
func (v *Vault) WriteRoundup(filename, content string) (string, error) {
	path := filepath.Join(v.BriefsDir(), filename)
	if err := v.writeFile(path, content); err != nil {
		return "", err
	}

	return path, nil
}

// BriefsForRange returns the topic's weekly brief paths whose filename date
// falls inside [start, end], sorted by filename (chronological).
func (v *Vault) BriefsForRange(topic string, start, end time.Time) ([]string, error) {
	return v.datedBriefFiles(fmt.Sprintf("_%s_weekly-brief.md", topic), func(date time.Time) bool {
		return !date.Before(start) && !date.After(end)
	})
}

// MonthlyRoundups returns the topic's monthly roundup paths for one year,
// sorted by filename (chronological).
func (v *Vault) MonthlyRoundups(topic string, year int) ([]string, error) {
	return v.datedBriefFiles(fmt.Sprintf("_%s_monthly-roundup.md", topic), func(date time.Time) bool {
		return date.Year() == year
	})
}

func (v *Vault) datedBriefFiles(suffix string, keep func(time.Time) bool) ([]string, error) {
	entries, err := os.ReadDir(v.BriefsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read briefs dir: %w", err)
	}

	var paths []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, suffix) {
			continue
		}

		date, err := time.Parse("2006-01-02", strings.TrimSuffix(name, suffix))
		if err != nil {
			continue
		}

		if keep(date) {
			paths = append(paths, filepath.Join(v.BriefsDir(), name))
		}
	}

	sort.Strings(paths)

	return paths, nil
}

// RecentTopicFiles returns topic note paths modified within lookback, newest
// first. A zero lookback returns all notes.
func (v *Vault) RecentTopicFiles(lookback time.Duration) ([]string, error) {
	entries, err := os.ReadDir(v.TopicsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read topics dir: %w", err)
	}

	cutoff := time.Now().Add(-lookback)

	type candidate struct {
		path    string
		modTime time.Time
	}

	var recent []candidate

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if lookback > 0 && info.ModTime().Before(cutoff) {
			continue
		}

		recent = append(recent, candidate{
			path:    filepath.Join(v.TopicsDir(), entry.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(recent, func(i, j int) bool {
		return recent[i].modTime.After(recent[j].modTime)
	})

	paths := make([]string, 0, len(recent))
	for _, c := range recent {
		paths = append(paths, c.path)
	}

	return paths, nil
}

func (v *Vault) writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("create dir for %q: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(content), filePerm); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}

	if v.logger != nil {
		v.logger.Debug().Str("path", path).Int("bytes", len(content)).Msg("wrote vault file")
	}

	return nil
}
