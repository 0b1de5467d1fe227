// Package feeds fetches RSS/Atom items for a topic's configured feed list
// and optionally enriches thin summaries with extracted article text.
package feeds

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/topic-garden/internal/core/domain"
)

const (
	defaultMaxItemsPerFeed = 50
	defaultMaxTotalItems   = 400
	defaultLookback        = 7 * 24 * time.Hour
	defaultSummaryMax      = 500

	fetchLimiterBurst = 2
)

// Config bounds one fetch run.
type Config struct {
	MaxItemsPerFeed   int
	MaxTotalItems     int
	Lookback          time.Duration
	SummaryMaxChars   int
	RequestsPerSecond float64
}

func (c Config) withDefaults() Config {
	if c.MaxItemsPerFeed <= 0 {
		c.MaxItemsPerFeed = defaultMaxItemsPerFeed
	}

	if c.MaxTotalItems <= 0 {
		c.MaxTotalItems = defaultMaxTotalItems
	}

	if c.Lookback <= 0 {
		c.Lookback = defaultLookback
	}

	if c.SummaryMaxChars <= 0 {
		c.SummaryMaxChars = defaultSummaryMax
	}

	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 2
	}

	return c
}

// Fetcher pulls items from RSS/Atom feeds.
type Fetcher struct {
	cfg     Config
	parser  *gofeed.Parser
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

// NewFetcher returns a fetcher with the given bounds.
func NewFetcher(cfg Config, logger *zerolog.Logger) *Fetcher {
	cfg = cfg.withDefaults()

	return &Fetcher{
		cfg:     cfg,
		parser:  gofeed.NewParser(),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), fetchLimiterBurst),
		logger:  logger,
	}
}

// FetchAll fetches every feed, keeping items published within the lookback
// window ending at end. Items without a parseable date are kept. A failing
// feed is logged and skipped. Results are deduped by ID, newest first,
// capped at MaxTotalItems.
func (f *Fetcher) FetchAll(ctx context.Context, feedURLs []string, end time.Time) ([]domain.Item, error) {
	cutoff := end.Add(-f.cfg.Lookback)

	var items []domain.Item

	for _, url := range feedURLs {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		fetched, err := f.fetchOne(ctx, url, cutoff, end)
		if err != nil {
			f.logger.Warn().Err(err).Str("feed", url).Msg("feed fetch failed")

			continue
		}

		items = append(items, fetched...)
	}

	return capNewestUnique(items, f.cfg.MaxTotalItems), nil
}

func (f *Fetcher) fetchOne(ctx context.Context, url string, cutoff, end time.Time) ([]domain.Item, error) {
	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	source := strings.TrimSpace(feed.Title)
	if source == "" {
		source = url
	}

	entries := feed.Items
	if len(entries) > f.cfg.MaxItemsPerFeed {
		entries = entries[:f.cfg.MaxItemsPerFeed]
	}

	items := make([]domain.Item, 0, len(entries))

	for _, entry := range entries {
		title := strings.TrimSpace(entry.Title)
		link := strings.TrimSpace(entry.Link)

		if title == "" || link == "" {
			continue
		}

		published := entryPublished(entry)
		if !published.IsZero() && (published.Before(cutoff) || published.After(end)) {
			continue
		}

		summary := entry.Description
		if summary == "" {
			summary = entry.Content
		}

		items = append(items, domain.Item{
			ID:           itemID(source, title, link),
			Title:        title,
			Link:         link,
			Source:       source,
			PublishedUTC: published,
			Summary:      NormalizeSummary(summary, f.cfg.SummaryMaxChars),
		})
	}

	return items, nil
}

// entryPublished resolves an entry's timestamp from the parsed feed fields,
// falling back to lenient string parsing for feeds with nonstandard dates.
func entryPublished(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC()
	}

	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UTC()
	}

	for _, raw := range []string{entry.Published, entry.Updated} {
		if raw == "" {
			continue
		}

		if parsed, err := dateparse.ParseAny(raw); err == nil {
			return parsed.UTC()
		}
	}

	return time.Time{}
}

func itemID(source, title, link string) string {
	sum := sha1.Sum([]byte(source + "|" + title + "|" + link))

	return hex.EncodeToString(sum[:])
}

func capNewestUnique(items []domain.Item, max int) []domain.Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.Item, 0, len(items))

	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}

		seen[item.ID] = struct{}{}
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedUTC.After(out[j].PublishedUTC)
	})

	if len(out) > max {
		out = out[:max]
	}

	return out
}
