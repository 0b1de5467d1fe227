package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lueurxax/topic-garden/internal/core/domain"
)

// firstJSONObject extracts the first top-level {...} from text, respecting
// string boundaries, so trailing commentary or code fences don't break the
// parse.
func firstJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSONObject
	}

	depth := 0
	inString := false
	escapeNext := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if escapeNext {
			escapeNext = false

			continue
		}

		if inString {
			switch c {
			case '\\':
				escapeNext = true
			case '"':
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("%w: object is truncated or unclosed", ErrNoJSONObject)
}

func parseTriage(content string, req TriageRequest) (domain.TriageResult, error) {
	object, err := firstJSONObject(content)
	if err != nil {
		return domain.TriageResult{}, err
	}

	var raw struct {
		WeekOf string `json:"week_of"`
		Notes  string `json:"notes"`
		Ranked []struct {
			ID           string   `json:"id"`
			Title        string   `json:"title"`
			Link         string   `json:"link"`
			Source       string   `json:"source"`
			PublishedUTC *string  `json:"published_utc"`
			Score        float64  `json:"score"`
			Why          string   `json:"why"`
			Tags         []string `json:"tags"`
		} `json:"ranked"`
	}

	if err := json.Unmarshal([]byte(object), &raw); err != nil {
		return domain.TriageResult{}, fmt.Errorf("parse triage response: %w", err)
	}

	known := make(map[string]struct{}, len(req.Items))
	for _, it := range req.Items {
		known[it.ID] = struct{}{}
	}

	result := domain.TriageResult{
		WeekOf: strings.TrimSpace(raw.WeekOf),
		Notes:  strings.TrimSpace(raw.Notes),
	}
	if result.WeekOf == "" {
		result.WeekOf = req.WeekOf
	}

	for _, row := range raw.Ranked {
		id := strings.TrimSpace(row.ID)
		if _, ok := known[id]; !ok {
			continue
		}

		score := row.Score
		if score < 0 {
			score = 0
		} else if score > 1 {
			score = 1
		}

		published := ""
		if row.PublishedUTC != nil {
			published = strings.TrimSpace(*row.PublishedUTC)
		}

		result.Ranked = append(result.Ranked, domain.RankedItem{
			ID:           id,
			Title:        strings.TrimSpace(row.Title),
			Link:         strings.TrimSpace(row.Link),
			Source:       strings.TrimSpace(row.Source),
			PublishedUTC: published,
			Score:        score,
			Why:          strings.TrimSpace(row.Why),
			Tags:         row.Tags,
		})
	}

	return result, nil
}

func parseRedundancy(content string, req RedundancyRequest) (RedundancyResult, error) {
	object, err := firstJSONObject(content)
	if err != nil {
		return RedundancyResult{}, err
	}

	var raw struct {
		RedundantIDs []string                  `json:"redundant_ids"`
		Mentions     []domain.RedundantMention `json:"redundant_mentions"`
	}

	if err := json.Unmarshal([]byte(object), &raw); err != nil {
		return RedundancyResult{}, fmt.Errorf("parse redundancy response: %w", err)
	}

	itemsByID := make(map[string]domain.Item, len(req.Items))
	for _, it := range req.Items {
		itemsByID[it.ID] = it
	}

	var result RedundancyResult

	seenIDs := make(map[string]struct{}, len(raw.RedundantIDs))

	for _, rawID := range raw.RedundantIDs {
		id := strings.TrimSpace(rawID)
		if id == "" {
			continue
		}

		if _, ok := seenIDs[id]; ok {
			continue
		}

		seenIDs[id] = struct{}{}
		result.RedundantIDs = append(result.RedundantIDs, id)
	}

	for _, mention := range raw.Mentions {
		id := strings.TrimSpace(mention.ID)

		item, ok := itemsByID[id]
		if !ok {
			continue
		}

		slug := strings.TrimSpace(mention.TopicSlug)
		bullet := strings.TrimSpace(mention.MatchedFactBullet)
		url := resolveMentionURL(strings.TrimSpace(mention.SourceURL), strings.TrimSpace(item.Link), req.Allowed)

		if slug == "" || bullet == "" || url == "" {
			continue
		}

		result.Mentions = append(result.Mentions, domain.RedundantMention{
			ID:                id,
			TopicSlug:         slug,
			MatchedFactBullet: bullet,
			SourceURL:         url,
		})
	}

	return result, nil
}

func parseTopicActions(content string) ([]domain.TopicAction, error) {
	object, err := firstJSONObject(content)
	if err != nil {
		return nil, err
	}

	var raw struct {
		TopicActions []domain.TopicAction `json:"topic_actions"`
	}

	if err := json.Unmarshal([]byte(object), &raw); err != nil {
		return nil, fmt.Errorf("parse gardener response: %w", err)
	}

	out := make([]domain.TopicAction, 0, len(raw.TopicActions))

	for _, action := range raw.TopicActions {
		kind := strings.ToLower(strings.TrimSpace(action.Action))
		if kind != domain.ActionCreate && kind != domain.ActionUpdate {
			continue
		}

		if strings.TrimSpace(action.Slug) == "" {
			continue
		}

		action.Action = kind
		out = append(out, action)
	}

	return out, nil
}
