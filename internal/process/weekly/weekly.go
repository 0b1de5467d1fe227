// Package weekly orchestrates one topic's weekly run: fetch, dedupe,
// redundancy filtering, triage, brief rendering, link hygiene, and the
// topic gardener.
package weekly

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/topic-garden/internal/core/domain"
	"github.com/lueurxax/topic-garden/internal/core/frontmatter"
	"github.com/lueurxax/topic-garden/internal/core/links"
	"github.com/lueurxax/topic-garden/internal/core/llm"
	"github.com/lueurxax/topic-garden/internal/output/brief"
	"github.com/lueurxax/topic-garden/internal/platform/config"
	"github.com/lueurxax/topic-garden/internal/platform/observability"
	"github.com/lueurxax/topic-garden/internal/process/gardener"
	"github.com/lueurxax/topic-garden/internal/storage/vault"
)

const (
	dateLayout = "2006-01-02"

	dryRunItemCap        = 20
	topicPreviewMaxChars = 400
)

// ErrInvalidWeekSpec is returned for week specs not matching "YYYY week N".
var ErrInvalidWeekSpec = errors.New("invalid week spec")

var weekSpecRe = regexp.MustCompile(`(?i)^(\d{4})\s+week\s+(\d+)$`)

// ItemFetcher supplies this week's feed items.
type ItemFetcher interface {
	FetchAll(ctx context.Context, feedURLs []string, end time.Time) ([]domain.Item, error)
}

// ItemEnricher replaces thin summaries with extracted article text.
type ItemEnricher interface {
	Enrich(ctx context.Context, items []domain.Item) []domain.Item
}

// Runner executes weekly runs against one vault.
type Runner struct {
	cfg      *config.Config
	vault    *vault.Vault
	client   llm.Client
	fetcher  ItemFetcher
	enricher ItemEnricher
	applier  *gardener.Applier
	logger   *zerolog.Logger
}

// NewRunner wires a runner. enricher may be nil to disable enrichment.
func NewRunner(cfg *config.Config, v *vault.Vault, client llm.Client, fetcher ItemFetcher, enricher ItemEnricher, logger *zerolog.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		vault:    v,
		client:   client,
		fetcher:  fetcher,
		enricher: enricher,
		applier:  gardener.NewApplier(v, logger),
		logger:   logger,
	}
}

// RunOptions selects the topic and week for one run.
type RunOptions struct {
	Topic    string
	WeekSpec string // "YYYY week N"; empty means the current ISO week
	DryRun   bool
}

// RunResult summarizes what one run produced.
type RunResult struct {
	WeekOf           string
	BriefPath        string
	Fetched          int
	Scored           int
	Kept             int
	RedundantDropped int
	Mentions         gardener.MentionStats
	Headings         brief.HeadingStats
	Sanitize         links.SanitizeStats
	ActionsApplied   int
}

// ParseWeekSpec parses "YYYY week N" (ISO week) and returns that week's
// Monday in UTC.
func ParseWeekSpec(spec string) (time.Time, error) {
	groups := weekSpecRe.FindStringSubmatch(strings.TrimSpace(spec))
	if groups == nil {
		return time.Time{}, fmt.Errorf("%w: expected 'YYYY week N', got %q", ErrInvalidWeekSpec, spec)
	}

	year, _ := strconv.Atoi(groups[1])
	week, _ := strconv.Atoi(groups[2])

	if week < 1 || week > 53 {
		return time.Time{}, fmt.Errorf("%w: ISO week number %d out of range", ErrInvalidWeekSpec, week)
	}

	monday := isoWeekStart(year, week)
	if y, w := monday.ISOWeek(); y != year || w != week {
		return time.Time{}, fmt.Errorf("%w: year %d has no week %d", ErrInvalidWeekSpec, year, week)
	}

	return monday, nil
}

// isoWeekStart returns the Monday of the given ISO week. January 4th is
// always inside ISO week 1.
func isoWeekStart(year, week int) time.Time {
	jan4 := time.Date(year, 1, 4, 0, 0, 0, 0, time.UTC)

	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}

	week1Monday := jan4.AddDate(0, 0, 1-weekday)

	return week1Monday.AddDate(0, 0, (week-1)*7)
}

func currentWeekStart(now time.Time) time.Time {
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	return day.AddDate(0, 0, 1-weekday)
}

// Run executes the weekly pipeline for one topic.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	started := time.Now()
	now := time.Now().UTC()
	today := now.Format(dateLayout)

	logger := r.logger.With().Str("run_id", uuid.NewString()).Str("topic", opts.Topic).Logger()

	weekStart := currentWeekStart(now)

	if opts.WeekSpec != "" {
		parsed, err := ParseWeekSpec(opts.WeekSpec)
		if err != nil {
			return nil, err
		}

		weekStart = parsed
	}

	weekOf := weekStart.Format(dateLayout)

	end := weekStart.AddDate(0, 0, 7).Add(-time.Second)
	if end.After(now) {
		end = now
	}

	result := &RunResult{WeekOf: weekOf}

	items, interests, err := r.gatherItems(ctx, &logger, opts, end)
	if err != nil {
		observability.WeeklyRunDuration.WithLabelValues(opts.Topic, "error").Observe(time.Since(started).Seconds())

		return nil, err
	}

	result.Fetched = len(items)

	if opts.DryRun && len(items) > dryRunItemCap {
		items = items[:dryRunItemCap]
	}

	allowed := links.BuildIndex(itemLinks(items))

	items = r.applyRedundancy(ctx, &logger, opts, items, allowed, today, result)

	triage, err := r.triage(ctx, weekOf, interests, items)
	if err != nil {
		observability.WeeklyRunDuration.WithLabelValues(opts.Topic, "error").Observe(time.Since(started).Seconds())

		return nil, err
	}

	kept := keepTop(triage.Ranked, r.cfg.MinScoreRead, r.cfg.MaxReturned)
	result.Scored = len(triage.Ranked)
	result.Kept = len(kept)

	itemsByID := make(map[string]domain.Item, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	briefFilename := vault.BriefFilename(weekOf, opts.Topic)
	rows := brief.MetadataRows(briefFilename, kept, itemsByID)

	content := brief.Render(triage, itemsByID, kept, opts.Topic, r.cfg.MinScoreRead, today)

	content, result.Headings = brief.ResolveHeadingLinks(content, briefFilename, rows)
	recordHeadingStats(result.Headings)

	keptIndex := links.BuildIndex(keptLinks(kept, itemsByID))

	content, result.Sanitize = links.Sanitize(content, keptIndex)
	recordSanitizeStats(result.Sanitize)

	briefPath, err := r.vault.WriteBrief(weekOf, opts.Topic, content)
	if err != nil {
		observability.WeeklyRunDuration.WithLabelValues(opts.Topic, "error").Observe(time.Since(started).Seconds())

		return nil, fmt.Errorf("write brief: %w", err)
	}

	result.BriefPath = briefPath

	if !opts.DryRun {
		if err := appendBriefRows(r.vault.BriefsArticlesCSV(), briefRows(opts.Topic, weekOf, briefFilename, kept, itemsByID)); err != nil {
			return nil, err
		}

		result.ActionsApplied = r.runGardener(ctx, &logger, opts.Topic, content, kept, keptIndex, today)
	}

	logger.Info().
		Str("week_of", weekOf).
		Int("fetched", result.Fetched).
		Int("scored", result.Scored).
		Int("kept", result.Kept).
		Int("redundant_dropped", result.RedundantDropped).
		Str("brief", briefPath).
		Msg("weekly run finished")

	observability.WeeklyRunDuration.WithLabelValues(opts.Topic, "ok").Observe(time.Since(started).Seconds())

	return result, nil
}

func (r *Runner) gatherItems(ctx context.Context, logger *zerolog.Logger, opts RunOptions, end time.Time) ([]domain.Item, string, error) {
	feedURLs, err := r.vault.LoadFeeds(opts.Topic)
	if err != nil {
		return nil, "", err
	}

	interests, err := r.vault.LoadInterests(opts.Topic)
	if err != nil {
		return nil, "", err
	}

	items, err := r.fetcher.FetchAll(ctx, feedURLs, end)
	if err != nil {
		return nil, "", fmt.Errorf("fetch feeds: %w", err)
	}

	observability.FeedItemsFetched.WithLabelValues(opts.Topic).Add(float64(len(items)))

	if r.enricher != nil && r.cfg.EnrichmentEnabled {
		items = r.enricher.Enrich(ctx, items)
	}

	items, urlDupes := dedupeByNormalizedURL(items)
	observability.ItemsDeduped.WithLabelValues(opts.Topic, "duplicate_url").Add(float64(urlDupes))

	seen, err := loadSeenURLs(r.vault.BriefsArticlesCSV(), opts.Topic)
	if err != nil {
		return nil, "", err
	}

	items, alreadySeen := dropSeenURLs(items, seen)
	observability.ItemsDeduped.WithLabelValues(opts.Topic, "already_in_brief").Add(float64(alreadySeen))

	logger.Debug().Int("items", len(items)).Int("url_dupes", urlDupes).Int("already_seen", alreadySeen).Msg("gathered items")

	return items, interests, nil
}

func (r *Runner) applyRedundancy(ctx context.Context, logger *zerolog.Logger, opts RunOptions, items []domain.Item, allowed links.Index, today string, result *RunResult) []domain.Item {
	if !r.cfg.TopicRedundancy || opts.DryRun || len(items) == 0 {
		return items
	}

	refs, err := r.loadTopicRefs()
	if err != nil {
		logger.Warn().Err(err).Msg("skipping redundancy check")

		return items
	}

	if len(refs) == 0 {
		return items
	}

	redundant := make(map[string]struct{})

	var mentions []domain.RedundantMention

	batchSize := r.cfg.TopicRedundancyBatchSize
	if batchSize <= 0 {
		batchSize = len(items)
	}

	for start := 0; start < len(items); start += batchSize {
		batch := items[start:min(start+batchSize, len(items))]

		detected, err := r.client.DetectRedundancy(ctx, llm.RedundancyRequest{TopicRefs: refs, Items: batch, Allowed: allowed})
		if err != nil {
			logger.Warn().Err(err).Int("batch_start", start).Msg("redundancy batch failed")

			continue
		}

		for _, id := range detected.RedundantIDs {
			redundant[id] = struct{}{}
		}

		// Mentions only count for items actually marked redundant.
		for _, mention := range detected.Mentions {
			if _, ok := redundant[mention.ID]; ok {
				mentions = append(mentions, mention)
			}
		}
	}

	kept := make([]domain.Item, 0, len(items))

	for _, item := range items {
		if _, ok := redundant[item.ID]; ok {
			continue
		}

		kept = append(kept, item)
	}

	result.RedundantDropped = len(items) - len(kept)
	observability.ItemsDeduped.WithLabelValues(opts.Topic, "redundant").Add(float64(result.RedundantDropped))

	result.Mentions = r.applier.ApplyMentions(mentions, today)
	recordMentionStats(result.Mentions)

	return kept
}

func (r *Runner) triage(ctx context.Context, weekOf, interests string, items []domain.Item) (domain.TriageResult, error) {
	if len(items) == 0 {
		provenance := r.client.Provenance()

		return domain.TriageResult{WeekOf: weekOf, LLMBackend: provenance.Backend, LLMModel: provenance.Model}, nil
	}

	started := time.Now()

	triage, err := r.client.Triage(ctx, llm.TriageRequest{WeekOf: weekOf, Interests: interests, Items: items})

	observability.LLMRequestDuration.WithLabelValues("triage").Observe(time.Since(started).Seconds())

	if err != nil {
		return domain.TriageResult{}, fmt.Errorf("triage: %w", err)
	}

	triage.WeekOf = weekOf

	return triage, nil
}

func (r *Runner) runGardener(ctx context.Context, logger *zerolog.Logger, topic, briefContent string, kept []domain.RankedItem, allowed links.Index, today string) int {
	if !r.cfg.TopicGardener {
		return 0
	}

	previews, err := r.topicPreviews()
	if err != nil {
		logger.Warn().Err(err).Msg("skipping gardener: cannot list topics")

		return 0
	}

	actions, err := r.client.ProposeTopicActions(ctx, llm.GardenerRequest{
		Topic:          topic,
		BriefContent:   briefContent,
		ExistingTopics: previews,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("skipping gardener: proposal failed")

		return 0
	}

	applied := r.applier.ApplyActions(actions, gardener.ApplyOptions{
		Today:       today,
		Topic:       topic,
		DefaultTags: brief.AggregateRankedItemTags(kept),
		Provenance:  r.client.Provenance(),
		Allowed:     allowed,
	})

	observability.GardenerActions.WithLabelValues("any", "applied").Add(float64(applied))
	observability.GardenerActions.WithLabelValues("any", "skipped").Add(float64(len(actions) - applied))

	return applied
}

// loadTopicRefs reads recently touched topic notes as redundancy references.
func (r *Runner) loadTopicRefs() ([]llm.TopicRef, error) {
	paths, err := r.vault.RecentTopicFiles(r.cfg.RedundancyLookback())
	if err != nil {
		return nil, err
	}

	refs := make([]llm.TopicRef, 0, len(paths))

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		_, body := frontmatter.Split(string(data))

		refs = append(refs, llm.TopicRef{
			Slug: strings.TrimSuffix(filepath.Base(path), ".md"),
			Body: body,
		})
	}

	return refs, nil
}

func (r *Runner) topicPreviews() ([]llm.TopicPreview, error) {
	paths, err := r.vault.RecentTopicFiles(0)
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)

	previews := make([]llm.TopicPreview, 0, len(paths))

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		preview := strings.TrimSpace(string(data))
		if len([]rune(preview)) > topicPreviewMaxChars {
			preview = string([]rune(preview)[:topicPreviewMaxChars]) + "…"
		}

		previews = append(previews, llm.TopicPreview{
			Slug:    strings.TrimSuffix(filepath.Base(path), ".md"),
			Preview: preview,
		})
	}

	return previews, nil
}

func keepTop(ranked []domain.RankedItem, minScore float64, maxReturned int) []domain.RankedItem {
	sorted := make([]domain.RankedItem, len(ranked))
	copy(sorted, ranked)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	kept := make([]domain.RankedItem, 0, len(sorted))

	for _, r := range sorted {
		if r.Score < minScore {
			break
		}

		kept = append(kept, r)

		if maxReturned > 0 && len(kept) == maxReturned {
			break
		}
	}

	return kept
}

func dedupeByNormalizedURL(items []domain.Item) ([]domain.Item, int) {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.Item, 0, len(items))

	for _, item := range items {
		key := links.NormalizeForMatch(item.Link)
		if key == "" {
			key = item.Link
		}

		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		out = append(out, item)
	}

	return out, len(items) - len(out)
}

func dropSeenURLs(items []domain.Item, seen map[string]struct{}) ([]domain.Item, int) {
	if len(seen) == 0 {
		return items, 0
	}

	out := make([]domain.Item, 0, len(items))

	for _, item := range items {
		if _, ok := seen[links.NormalizeForMatch(item.Link)]; ok {
			continue
		}

		out = append(out, item)
	}

	return out, len(items) - len(out)
}

func itemLinks(items []domain.Item) []string {
	out := make([]string, 0, len(items))

	for _, item := range items {
		out = append(out, item.Link)
	}

	return out
}

// keptLinks builds the sanitizer allow-list from the week's surviving
// articles: the fetched item link first, falling back to the triage row's.
func keptLinks(kept []domain.RankedItem, itemsByID map[string]domain.Item) []string {
	out := make([]string, 0, len(kept))

	for _, r := range kept {
		if link := strings.TrimSpace(itemsByID[r.ID].Link); link != "" {
			out = append(out, link)

			continue
		}

		if link := strings.TrimSpace(r.Link); link != "" {
			out = append(out, link)
		}
	}

	return out
}

func recordSanitizeStats(stats links.SanitizeStats) {
	observability.LinksSanitized.WithLabelValues("kept").Add(float64(stats.Kept))
	observability.LinksSanitized.WithLabelValues("rewritten").Add(float64(stats.Rewritten))
	observability.LinksSanitized.WithLabelValues("html_converted").Add(float64(stats.HTMLConverted))
	observability.LinksSanitized.WithLabelValues("delinked").Add(float64(stats.Delinked))
	observability.LinksSanitized.WithLabelValues("invalid").Add(float64(stats.Invalid))
	observability.LinksSanitized.WithLabelValues("unmatched").Add(float64(stats.Unmatched))
}

func recordHeadingStats(stats brief.HeadingStats) {
	observability.HeadingResolutions.WithLabelValues("exact").Add(float64(stats.ExactMatches))
	observability.HeadingResolutions.WithLabelValues("normalized").Add(float64(stats.NormalizedMatches))
	observability.HeadingResolutions.WithLabelValues("ambiguous").Add(float64(stats.Ambiguous))
	observability.HeadingResolutions.WithLabelValues("missing").Add(float64(stats.Missing))
	observability.HeadingResolutions.WithLabelValues("invalid_url").Add(float64(stats.InvalidURL))
	observability.HeadingResolutions.WithLabelValues("unchanged").Add(float64(stats.Unchanged))
}

func recordMentionStats(stats gardener.MentionStats) {
	observability.MentionsApplied.WithLabelValues("applied").Add(float64(stats.Applied))
	observability.MentionsApplied.WithLabelValues("already_recorded").Add(float64(stats.AlreadyRecorded))
	observability.MentionsApplied.WithLabelValues("missing_topic").Add(float64(stats.MissingTopic))
	observability.MentionsApplied.WithLabelValues("missing_bullet").Add(float64(stats.MissingBullet))
	observability.MentionsApplied.WithLabelValues("invalid").Add(float64(stats.Invalid))
	observability.MentionsApplied.WithLabelValues("files_updated").Add(float64(stats.FilesUpdated))
}
