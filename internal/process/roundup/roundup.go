// Package roundup composes monthly roundups from weekly briefs and annual
// reviews from monthly roundups. The prose comes from the model, but every
// link in it is sanitized against the URLs extracted from the source
// documents, so a roundup can never cite a URL its sources did not.
package roundup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/topic-garden/internal/core/frontmatter"
	"github.com/lueurxax/topic-garden/internal/core/links"
	"github.com/lueurxax/topic-garden/internal/core/llm"
	"github.com/lueurxax/topic-garden/internal/platform/observability"
	"github.com/lueurxax/topic-garden/internal/storage/vault"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"

	monthlyGenerator = "topic-garden-monthly"
	annualGenerator  = "topic-garden-annual"

	periodMonthly = "monthly"
	periodAnnual  = "annual"

	defaultWindowDays = 31
	monthsPerYear     = 12

	provenanceUnknown = "unknown"
	provenanceMixed   = "mixed"
)

// ErrInvalidMonth is returned for month specs not matching "YYYY-MM".
var ErrInvalidMonth = errors.New("invalid month spec")

// ErrNoRoundups is returned when an annual review finds no monthly roundups
// to build on.
var ErrNoRoundups = errors.New("no monthly roundups found")

// Runner writes roundup documents into the vault's briefs directory.
type Runner struct {
	vault  *vault.Vault
	client llm.Client
	logger *zerolog.Logger
}

// NewRunner wires a roundup runner.
func NewRunner(v *vault.Vault, client llm.Client, logger *zerolog.Logger) *Runner {
	return &Runner{vault: v, client: client, logger: logger}
}

// MonthlyOptions selects the topic and period for one monthly roundup.
type MonthlyOptions struct {
	Topic string
	// Month is a calendar month "YYYY-MM". When empty, the window is Days
	// days ending the day before End (or before today).
	Month string
	End   string
	Days  int
}

// AnnualOptions selects the topic and year for one annual review.
type AnnualOptions struct {
	Topic string
	Year  int
}

// Result summarizes one roundup write.
type Result struct {
	Path     string
	Sources  int
	Sanitize links.SanitizeStats
}

// Monthly composes a roundup of the period's weekly briefs. A period with
// no briefs still writes a stub document so the month is visibly covered.
func (r *Runner) Monthly(ctx context.Context, opts MonthlyOptions) (*Result, error) {
	start, end, err := monthlyWindow(opts)
	if err != nil {
		return nil, err
	}

	endDate := end.Format(dateLayout)
	monthName := end.Format("January 2006")
	topicUpper := strings.ToUpper(opts.Topic)

	paths, err := r.vault.BriefsForRange(opts.Topic, start, end)
	if err != nil {
		return nil, err
	}

	var body string

	if len(paths) == 0 {
		body = fmt.Sprintf("# %s Monthly Roundup — %s\n\n*No briefs found for this period.*\n", topicUpper, monthName)
	} else {
		prompt := fmt.Sprintf(monthlyPrompt,
			start.Format(dateLayout), endDate, monthName, renderSourceDocs(paths), topicUpper, monthName)

		body, err = r.compose(ctx, "monthly_roundup", prompt)
		if err != nil {
			return nil, fmt.Errorf("compose monthly roundup: %w", err)
		}
	}

	result := &Result{Sources: len(paths)}
	body, result.Sanitize = sanitizeAgainstSources(body, paths)

	fm := r.roundupFrontmatter(paths, frontmatter.Frontmatter{
		"title":     fmt.Sprintf("%s Monthly Roundup — %s", topicUpper, monthName),
		"date":      endDate,
		"generator": monthlyGenerator,
		"period":    periodMonthly,
		"topic":     opts.Topic,
		"month":     end.Format(monthLayout),
	})

	path, err := r.vault.WriteRoundup(vault.MonthlyRoundupFilename(endDate, opts.Topic), frontmatter.With(body, fm))
	if err != nil {
		return nil, fmt.Errorf("write monthly roundup: %w", err)
	}

	result.Path = path

	r.logger.Info().
		Str("topic", opts.Topic).
		Str("period", start.Format(dateLayout)+".."+endDate).
		Int("briefs", len(paths)).
		Str("roundup", path).
		Msg("monthly roundup written")

	return result, nil
}

// Annual composes a review of the year's monthly roundups. Unlike Monthly,
// a year without roundups is an error: there is nothing to review.
func (r *Runner) Annual(ctx context.Context, opts AnnualOptions) (*Result, error) {
	paths, err := r.vault.MonthlyRoundups(opts.Topic, opts.Year)
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: topic %q, year %d", ErrNoRoundups, opts.Topic, opts.Year)
	}

	if len(paths) < monthsPerYear {
		r.logger.Warn().Int("roundups", len(paths)).Int("year", opts.Year).Msg("partial year")
	}

	topicUpper := strings.ToUpper(opts.Topic)

	prompt := fmt.Sprintf(annualPrompt, opts.Year, renderSourceDocs(paths), topicUpper, opts.Year)

	body, err := r.compose(ctx, "annual_review", prompt)
	if err != nil {
		return nil, fmt.Errorf("compose annual review: %w", err)
	}

	result := &Result{Sources: len(paths)}
	body, result.Sanitize = sanitizeAgainstSources(body, paths)

	fm := r.roundupFrontmatter(paths, frontmatter.Frontmatter{
		"title":     fmt.Sprintf("%s Annual Review — %d", topicUpper, opts.Year),
		"date":      fmt.Sprintf("%d-12-31", opts.Year),
		"generator": annualGenerator,
		"period":    periodAnnual,
		"topic":     opts.Topic,
		"year":      opts.Year,
	})

	path, err := r.vault.WriteRoundup(vault.AnnualReviewFilename(opts.Year, opts.Topic), frontmatter.With(body, fm))
	if err != nil {
		return nil, fmt.Errorf("write annual review: %w", err)
	}

	result.Path = path

	r.logger.Info().
		Str("topic", opts.Topic).
		Int("year", opts.Year).
		Int("roundups", len(paths)).
		Str("review", path).
		Msg("annual review written")

	return result, nil
}

func (r *Runner) compose(ctx context.Context, task, prompt string) (string, error) {
	started := time.Now()

	body, err := r.client.Compose(ctx, task, prompt)

	observability.LLMRequestDuration.WithLabelValues(task).Observe(time.Since(started).Seconds())

	return body, err
}

// roundupFrontmatter fills the shared metadata fields from the source
// documents: aggregated tags, lastmod, and provenance (a single backend or
// model is carried through; disagreeing sources collapse to "mixed" with
// the full list alongside).
func (r *Runner) roundupFrontmatter(paths []string, fm frontmatter.Frontmatter) frontmatter.Frontmatter {
	meta := collectSourceMetadata(paths)

	fm["lastmod"] = time.Now().UTC().Format(dateLayout)
	fm["tags"] = meta.tags
	fm["llm_backend"] = meta.backend
	fm["llm_model"] = meta.model

	if len(meta.backends) > 1 {
		fm["llm_backends"] = meta.backends
	}

	if len(meta.models) > 1 {
		fm["llm_models"] = meta.models
	}

	return fm
}

func monthlyWindow(opts MonthlyOptions) (time.Time, time.Time, error) {
	if strings.TrimSpace(opts.Month) != "" {
		parsed, err := time.Parse(monthLayout, strings.TrimSpace(opts.Month))
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: expected YYYY-MM, got %q", ErrInvalidMonth, opts.Month)
		}

		start := time.Date(parsed.Year(), parsed.Month(), 1, 0, 0, 0, 0, time.UTC)

		return start, start.AddDate(0, 1, -1), nil
	}

	end := time.Now().UTC()

	if strings.TrimSpace(opts.End) != "" {
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(opts.End))
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: expected ISO end date, got %q", ErrInvalidMonth, opts.End)
		}

		end = parsed
	}

	// The window ends the day before the given end so a roundup run on the
	// 1st covers the finished month, not the new day.
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)

	days := opts.Days
	if days <= 0 {
		days = defaultWindowDays
	}

	return end.AddDate(0, 0, -(days - 1)), end, nil
}

// renderSourceDocs inlines the source documents for the prompt, frontmatter
// stripped.
func renderSourceDocs(paths []string) string {
	rendered := make([]string, 0, len(paths))

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		_, body := frontmatter.Split(string(data))

		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}

		name := filepath.Base(path)
		rendered = append(rendered, fmt.Sprintf("[BEGIN DOCUMENT: %s]\n%s\n[END DOCUMENT: %s]", name, body, name))
	}

	if len(rendered) == 0 {
		return "(no readable source documents)"
	}

	return strings.Join(rendered, "\n\n")
}

// sanitizeAgainstSources rewrites the composed markdown against an
// allow-list of every URL the source documents carry. This is the trust
// boundary for roundups: the model summarizes, the sources cite.
func sanitizeAgainstSources(markdown string, paths []string) (string, links.SanitizeStats) {
	var urls []string

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		urls = append(urls, links.ExtractURLs(string(data))...)
	}

	sanitized, stats := links.Sanitize(markdown, links.BuildIndex(urls))

	observability.LinksSanitized.WithLabelValues("kept").Add(float64(stats.Kept))
	observability.LinksSanitized.WithLabelValues("rewritten").Add(float64(stats.Rewritten))
	observability.LinksSanitized.WithLabelValues("html_converted").Add(float64(stats.HTMLConverted))
	observability.LinksSanitized.WithLabelValues("delinked").Add(float64(stats.Delinked))
	observability.LinksSanitized.WithLabelValues("invalid").Add(float64(stats.Invalid))
	observability.LinksSanitized.WithLabelValues("unmatched").Add(float64(stats.Unmatched))

	return sanitized, stats
}

type sourceMetadata struct {
	tags     []string
	backend  string
	model    string
	backends []string
	models   []string
}

func collectSourceMetadata(paths []string) sourceMetadata {
	var tagLists [][]string

	backendSet := make(map[string]struct{})
	modelSet := make(map[string]struct{})

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		fm, _ := frontmatter.Split(string(data))

		if tags := frontmatter.NormalizeTags(frontmatter.StringList(fm["tags"])); len(tags) > 0 {
			tagLists = append(tagLists, tags)
		}

		if backend := frontmatter.String(fm["llm_backend"]); backend != "" {
			backendSet[backend] = struct{}{}
		}

		if model := frontmatter.String(fm["llm_model"]); model != "" {
			modelSet[model] = struct{}{}
		}
	}

	meta := sourceMetadata{
		tags:    frontmatter.AggregateTags(tagLists),
		backend: provenanceUnknown,
		model:   provenanceUnknown,
	}

	if names := sortedNames(backendSet); len(names) == 1 {
		meta.backend = names[0]
	} else if len(names) > 1 {
		meta.backend = provenanceMixed
		meta.backends = names
	}

	if names := sortedNames(modelSet); len(names) == 1 {
		meta.model = names[0]
	} else if len(names) > 1 {
		meta.model = provenanceMixed
		meta.models = names
	}

	return meta
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))

	for name := range set {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
