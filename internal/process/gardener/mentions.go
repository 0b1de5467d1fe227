package gardener

import (
	"errors"
	"strings"

	"github.com/lueurxax/topic-garden/internal/core/domain"
	"github.com/lueurxax/topic-garden/internal/core/facts"
	"github.com/lueurxax/topic-garden/internal/core/frontmatter"
	"github.com/lueurxax/topic-garden/internal/core/links"
	"github.com/lueurxax/topic-garden/internal/storage/vault"
)

// MentionStats summarizes one ApplyMentions run.
type MentionStats struct {
	Input           int
	Applied         int
	AlreadyRecorded int
	MissingTopic    int
	MissingBullet   int
	Invalid         int
	FilesUpdated    int
}

type mentionStatus int

const (
	statusApplied mentionStatus = iota
	statusAlreadyRecorded
	statusMissingBullet
	statusInvalid
)

type cleanMention struct {
	slug   string
	bullet string
	url    string
}

// DedupeMentions drops exact repeats of (slug, bullet, url), keeping
// first-seen order. Slugs are compared in sanitized form.
func DedupeMentions(mentions []domain.RedundantMention) []domain.RedundantMention {
	out := make([]domain.RedundantMention, 0, len(mentions))
	seen := make(map[cleanMention]struct{}, len(mentions))

	for _, m := range mentions {
		key := cleanMention{
			slug:   SanitizeSlug(m.TopicSlug),
			bullet: strings.TrimSpace(m.MatchedFactBullet),
			url:    strings.TrimSpace(m.SourceURL),
		}

		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		out = append(out, m)
	}

	return out
}

// ApplyMentions records redundancy mentions as extra citations on existing
// fact bullets. Notes are rewritten whole-file; a mention whose fact or
// topic cannot be located is counted and skipped, never guessed.
func (a *Applier) ApplyMentions(mentions []domain.RedundantMention, today string) MentionStats {
	stats := MentionStats{Input: len(mentions)}
	if len(mentions) == 0 {
		return stats
	}

	bySlug := make(map[string][]cleanMention)

	var slugOrder []string

	for _, m := range DedupeMentions(mentions) {
		clean := cleanMention{
			slug:   SanitizeSlug(m.TopicSlug),
			bullet: strings.TrimSpace(m.MatchedFactBullet),
			url:    strings.TrimSpace(m.SourceURL),
		}

		if clean.slug == "" || clean.bullet == "" || clean.url == "" {
			stats.Invalid++

			continue
		}

		if _, ok := bySlug[clean.slug]; !ok {
			slugOrder = append(slugOrder, clean.slug)
		}

		bySlug[clean.slug] = append(bySlug[clean.slug], clean)
	}

	for _, slug := range slugOrder {
		slugMentions := bySlug[slug]

		content, err := a.vault.ReadTopic(slug)
		if err != nil {
			if errors.Is(err, vault.ErrTopicNotFound) {
				stats.MissingTopic += len(slugMentions)

				continue
			}

			a.logger.Warn().Err(err).Str("slug", slug).Msg("skipping mentions for unreadable topic")

			stats.Invalid += len(slugMentions)

			continue
		}

		fm, body := frontmatter.Split(content)

		changed := false

		var sourcesToMerge []string

		for _, mention := range slugMentions {
			var status mentionStatus

			body, status = applyMentionToBody(body, mention.bullet, mention.url)

			switch status {
			case statusApplied:
				stats.Applied++

				changed = true

				sourcesToMerge = append(sourcesToMerge, mention.url)
			case statusAlreadyRecorded:
				stats.AlreadyRecorded++
			case statusMissingBullet:
				stats.MissingBullet++
			case statusInvalid:
				stats.Invalid++
			}
		}

		if !changed {
			continue
		}

		fm["lastmod"] = today
		fm["updated"] = today
		fm["sources"] = links.DedupeURLs(append(frontmatter.StringList(fm["sources"]), sourcesToMerge...))

		if err := a.vault.WriteTopic(slug, frontmatter.With(body, fm)); err != nil {
			a.logger.Warn().Err(err).Str("slug", slug).Msg("failed to write topic after mentions")

			continue
		}

		stats.FilesUpdated++
	}

	return stats
}

// applyMentionToBody appends a citation for url to the first bullet matching
// the target fact. Footnote indexes are reused for a URL the document has
// already cited.
func applyMentionToBody(body, matchedFactBullet, sourceURL string) (string, mentionStatus) {
	target := facts.NormalizeForMatch(matchedFactBullet)
	if target == "" || sourceURL == "" {
		return body, statusInvalid
	}

	lines := strings.Split(body, "\n")

	bulletIdx := -1

	for i, line := range lines {
		if !facts.IsBulletLine(line) {
			continue
		}

		if facts.NormalizeForMatch(line) == target {
			bulletIdx = i

			break
		}
	}

	if bulletIdx < 0 {
		return body, statusMissingBullet
	}

	ledger := facts.ParseLedger(body)

	core, suffix := facts.SplitMentionsSuffix(lines[bulletIdx])

	lineURLs := make(map[string]struct{})

	for _, idx := range facts.MarkerIndexes(core) {
		if url, ok := ledger[idx]; ok {
			lineURLs[url] = struct{}{}
		}
	}

	changed := false

	var newDefs []string

	if _, ok := lineURLs[sourceURL]; !ok {
		markerIdx, ok := ledger.IndexFor(sourceURL)
		if !ok {
			markerIdx = ledger.NextIndex()
			ledger[markerIdx] = sourceURL
			newDefs = append(newDefs, facts.Definition(markerIdx, sourceURL))
			changed = true
		}

		marker := facts.Marker(markerIdx)
		if !strings.Contains(core, marker) {
			spacer := " "
			if facts.EndsWithMarker(core) {
				spacer = ""
			}

			core += spacer + marker
			changed = true
		}
	}

	if updated := core + suffix; updated != lines[bulletIdx] {
		lines[bulletIdx] = updated
		changed = true
	}

	if !changed {
		return body, statusAlreadyRecorded
	}

	out := strings.Join(lines, "\n")
	if len(newDefs) > 0 {
		out = strings.TrimRight(out, " \t\n") + "\n\n" + strings.Join(newDefs, "\n")
	}

	return out, statusApplied
}
