// Package llm talks to the model backend for the three structured tasks of
// a weekly run — item triage, redundancy detection against existing topics,
// and topic-garden action proposals — plus freeform markdown composition
// for the roundup writers. Every structured response is schema-constrained
// JSON and still validated field-by-field before use.
package llm

import (
	"context"
	"errors"

	"github.com/lueurxax/topic-garden/internal/core/domain"
	"github.com/lueurxax/topic-garden/internal/core/links"
)

// ErrEmptyResponse indicates the model returned no choices or no content.
var ErrEmptyResponse = errors.New("empty model response")

// ErrNoJSONObject indicates no parseable JSON object was found in the model
// output.
var ErrNoJSONObject = errors.New("no JSON object found in model output")

// TopicRef is one existing topic document offered to the redundancy check.
type TopicRef struct {
	Slug string
	Body string
}

// TopicPreview is a truncated existing topic shown to the gardener prompt.
type TopicPreview struct {
	Slug    string
	Preview string
}

// TriageRequest scores this week's items against the reader's interests.
type TriageRequest struct {
	WeekOf    string
	Interests string
	Items     []domain.Item
}

// RedundancyRequest asks which items only repeat facts the topics already
// carry. Allowed constrains the source URLs mentions may cite.
type RedundancyRequest struct {
	TopicRefs []TopicRef
	Items     []domain.Item
	Allowed   links.Index
}

// RedundancyResult lists redundant item IDs and the fact-level mentions
// explaining why.
type RedundancyResult struct {
	RedundantIDs []string
	Mentions     []domain.RedundantMention
}

// GardenerRequest asks for create/update actions derived from one brief.
type GardenerRequest struct {
	Topic          string
	BriefContent   string
	ExistingTopics []TopicPreview
}

// Client is the model backend. Implementations validate structured
// responses before returning them; callers may trust field types but not
// field content. Compose output is untrusted markdown and must be
// link-sanitized by the caller before persisting.
type Client interface {
	Triage(ctx context.Context, req TriageRequest) (domain.TriageResult, error)
	DetectRedundancy(ctx context.Context, req RedundancyRequest) (RedundancyResult, error)
	ProposeTopicActions(ctx context.Context, req GardenerRequest) ([]domain.TopicAction, error)
	Compose(ctx context.Context, task, prompt string) (string, error)
	Provenance() domain.Provenance
}
