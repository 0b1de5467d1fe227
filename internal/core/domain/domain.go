package domain

import "time"

// Item represents a fetched feed item after dedup, ready for triage.
type Item struct {
	ID           string
	Title        string
	Link         string
	Source       string
	PublishedUTC time.Time
	Summary      string
}

// RankedItem is one triage result row referencing an Item by ID.
type RankedItem struct {
	ID           string
	Title        string
	Link         string
	Source       string
	PublishedUTC string
	Score        float64
	Why          string
	Tags         []string
}

// TriageResult is the aggregate triage output for one weekly run.
type TriageResult struct {
	WeekOf     string
	Notes      string
	Ranked     []RankedItem
	LLMBackend string
	LLMModel   string
}

// Action type constants for TopicAction.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
)

// TopicAction is an LLM-proposed create/update instruction for an evergreen
// topic document. It is untrusted input: no field is assumed well-formed
// beyond its JSON type.
type TopicAction struct {
	Action          string   `json:"action"`
	Slug            string   `json:"slug"`
	Title           string   `json:"title"`
	BodyMarkdown    string   `json:"body_markdown"`
	Sources         []string `json:"sources"`
	LinksTo         []string `json:"links_to"`
	AppendSources   []string `json:"append_sources"`
	SummaryAddendum string   `json:"summary_addendum"`
	Tags            []string `json:"tags"`
}

// RedundantMention records that a new article repeats a fact already captured
// by a topic fact bullet. Applied as an extra citation, never as new prose.
type RedundantMention struct {
	ID                string `json:"id"`
	TopicSlug         string `json:"topic_slug"`
	MatchedFactBullet string `json:"matched_fact_bullet"`
	SourceURL         string `json:"source_url"`
}

// Provenance identifies the LLM backend and model that authored content.
type Provenance struct {
	Backend string
	Model   string
}

// UnknownProvenance is used when a document carries no provenance metadata.
var UnknownProvenance = Provenance{Backend: "unknown", Model: "unknown"}
