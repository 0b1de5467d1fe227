// Package gardener applies LLM-proposed topic actions and redundancy
// mentions to the vault. Every write is citation-gated: content only lands
// in a note when it carries source URLs that survived the allow-list.
package gardener

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/topic-garden/internal/core/domain"
	"github.com/lueurxax/topic-garden/internal/core/facts"
	"github.com/lueurxax/topic-garden/internal/core/frontmatter"
	"github.com/lueurxax/topic-garden/internal/core/links"
	"github.com/lueurxax/topic-garden/internal/storage/vault"
)

const (
	generatorName   = "topic-garden-gardener"
	periodEvergreen = "evergreen"

	updatesHeading    = "## Gardener updates"
	newSourcesHeading = "### New sources"
)

// ErrUncitableContent is returned when an action carries body text but none
// of its source URLs survived the allow-list. The action is rejected whole.
var ErrUncitableContent = errors.New("action body has no allowed source URLs")

var slugCharsRe = regexp.MustCompile(`[^a-z0-9-]`)

// Applier writes topic actions into the vault.
type Applier struct {
	vault  *vault.Vault
	logger *zerolog.Logger
}

// NewApplier returns an applier over the given vault.
func NewApplier(v *vault.Vault, logger *zerolog.Logger) *Applier {
	return &Applier{vault: v, logger: logger}
}

// ApplyOptions carries the per-run context shared by all actions of a batch.
type ApplyOptions struct {
	// Today is the ISO date stamped into frontmatter and update entries.
	Today string
	// Topic is the run's topic name, recorded in created notes.
	Topic string
	// DefaultTags are merged into every touched note's tags.
	DefaultTags []string
	// Provenance names the LLM backend and model that proposed the actions.
	Provenance domain.Provenance
	// Allowed is the allow-list every cited URL must pass. A nil index
	// keeps all valid URLs.
	Allowed links.Index
}

// SanitizeSlug reduces a proposed slug to lowercase-hyphen form. The result
// may be empty when nothing survives.
func SanitizeSlug(raw string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-")

	return slugCharsRe.ReplaceAllString(slug, "")
}

// ApplyActions applies a batch of actions. A failing action is logged and
// skipped; earlier actions stay committed. Returns the number applied.
func (a *Applier) ApplyActions(actions []domain.TopicAction, opts ApplyOptions) int {
	applied := 0

	for _, action := range actions {
		if err := a.ApplyAction(action, opts); err != nil {
			a.logger.Warn().Err(err).Str("slug", action.Slug).Str("action", action.Action).Msg("skipping topic action")

			continue
		}

		applied++
	}

	if applied > 0 {
		a.logger.Info().Int("applied", applied).Str("topic", opts.Topic).Msg("applied topic actions")
	}

	return applied
}

// ApplyAction applies one action. Unknown action kinds and updates against
// missing notes are silent no-ops.
func (a *Applier) ApplyAction(action domain.TopicAction, opts ApplyOptions) error {
	if strings.TrimSpace(action.Slug) == "" {
		return nil
	}

	slug := SanitizeSlug(action.Slug)
	if slug == "" {
		slug = "untitled"
	}

	switch strings.ToLower(strings.TrimSpace(action.Action)) {
	case domain.ActionCreate:
		return a.createTopic(slug, action, opts)
	case domain.ActionUpdate:
		return a.updateTopic(slug, action, opts)
	default:
		return nil
	}
}

func (a *Applier) createTopic(slug string, action domain.TopicAction, opts ApplyOptions) error {
	title := strings.TrimSpace(action.Title)
	if title == "" {
		title = slug
	}

	body := facts.NormalizeToBullets(action.BodyMarkdown)

	sources := links.FilterToAllowed(append(trimNonEmpty(action.Sources), links.ExtractURLs(body)...), opts.Allowed)
	if body != "" && len(sources) == 0 {
		return fmt.Errorf("%w: create %q", ErrUncitableContent, slug)
	}

	tags := frontmatter.NormalizeTags(append(trimNonEmpty(action.Tags), opts.DefaultTags...))

	fm := frontmatter.Frontmatter{
		"title":       title,
		"date":        opts.Today,
		"lastmod":     opts.Today,
		"updated":     opts.Today,
		"tags":        emptyNotNil(tags),
		"generator":   generatorName,
		"period":      periodEvergreen,
		"llm_backend": provenanceOr(opts.Provenance.Backend, ""),
		"llm_model":   provenanceOr(opts.Provenance.Model, ""),
		"sources":     emptyNotNil(sources),
		"links_to":    emptyNotNil(trimNonEmpty(action.LinksTo)),
	}
	if opts.Topic != "" {
		fm["topic"] = opts.Topic
	}

	content := frontmatter.With(facts.WithSourceFootnotes(body, sources), fm)

	if err := a.vault.WriteTopic(slug, content); err != nil {
		return fmt.Errorf("create topic %q: %w", slug, err)
	}

	return nil
}

func (a *Applier) updateTopic(slug string, action domain.TopicAction, opts ApplyOptions) error {
	existing, err := a.vault.ReadTopic(slug)
	if err != nil {
		// Update against a slug the LLM invented is tolerated silently.
		if errors.Is(err, vault.ErrTopicNotFound) {
			return nil
		}

		return fmt.Errorf("update topic %q: %w", slug, err)
	}

	fm, body := frontmatter.Split(existing)

	appendSources := links.FilterToAllowed(trimNonEmpty(action.AppendSources), opts.Allowed)
	addendum := facts.NormalizeToBullets(action.SummaryAddendum)
	citedSources := links.FilterToAllowed(append(append([]string{}, appendSources...), links.ExtractURLs(addendum)...), opts.Allowed)

	// New citations continue the document's existing footnote numbering;
	// already-cited URLs reuse their index instead of gaining a duplicate
	// definition.
	ledger := facts.ParseLedger(body)

	var parts []string

	switch {
	case addendum != "":
		if len(citedSources) == 0 {
			return fmt.Errorf("%w: update %q", ErrUncitableContent, slug)
		}

		parts = append(parts, facts.AppendSourceFootnotes(addendum, citedSources, ledger))
	case len(appendSources) > 0:
		parts = append(parts, facts.AppendSourceFootnotes(facts.NormalizeToBullets("Source refresh."), appendSources, ledger))
	}

	if len(appendSources) > 0 {
		parts = append(parts, newSourcesHeading+"\n\n- "+strings.Join(appendSources, "\n- "))
	}

	updatedBody := strings.TrimRight(body, "\n")
	if len(parts) > 0 {
		entry := "### " + opts.Today + "\n\n" + strings.Join(parts, "\n\n")
		if !strings.Contains(updatedBody, updatesHeading) {
			entry = updatesHeading + "\n\n" + entry
		}

		updatedBody += "\n\n" + entry
	}

	tags := frontmatter.NormalizeTags(append(append(frontmatter.StringList(fm["tags"]), trimNonEmpty(action.Tags)...), opts.DefaultTags...))

	fm["title"] = stringOr(frontmatter.String(fm["title"]), slug)
	fm["date"] = stringOr(frontmatter.String(fm["date"]), opts.Today)
	fm["lastmod"] = opts.Today
	fm["updated"] = opts.Today
	fm["tags"] = emptyNotNil(tags)
	fm["generator"] = generatorName
	fm["period"] = stringOr(frontmatter.String(fm["period"]), periodEvergreen)
	fm["topic"] = stringOr(opts.Topic, frontmatter.String(fm["topic"]))
	fm["llm_backend"] = provenanceOr(opts.Provenance.Backend, frontmatter.String(fm["llm_backend"]))
	fm["llm_model"] = provenanceOr(opts.Provenance.Model, frontmatter.String(fm["llm_model"]))
	fm["sources"] = emptyNotNil(links.DedupeURLs(append(frontmatter.StringList(fm["sources"]), citedSources...)))
	fm["links_to"] = emptyNotNil(frontmatter.StringList(fm["links_to"]))

	if err := a.vault.WriteTopic(slug, frontmatter.With(updatedBody, fm)); err != nil {
		return fmt.Errorf("update topic %q: %w", slug, err)
	}

	return nil
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))

	for _, raw := range values {
		if value := strings.TrimSpace(raw); value != "" {
			out = append(out, value)
		}
	}

	return out
}

func emptyNotNil(values []string) []string {
	if values == nil {
		return []string{}
	}

	return values
}

func stringOr(value, fallback string) string {
	if value != "" {
		return value
	}

	return fallback
}

func provenanceOr(value, existing string) string {
	if value != "" {
		return value
	}

	if existing != "" {
		return existing
	}

	return domain.UnknownProvenance.Backend
}
