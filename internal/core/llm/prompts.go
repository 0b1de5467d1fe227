package llm

const triagePrompt = `You are triaging this week's RSS items for a weekly research brief.

Reader interests:
%s

Score every candidate item from 0.0 to 1.0 for relevance to the interests
above. Keep "why" to one sentence. Assign 1-8 short topical tags per item.

Week of: %s

Candidate RSS items:
%s

Return only a single JSON object matching the schema, no markdown code
fences, no commentary.`

const redundancyPrompt = `You have reference topic documents (each summarizes a story or theme we already cover in our newsletter). Below are candidate RSS items.

For each candidate item:
1. Which topic file, if any, does this article belong to? (same story or theme)
2. If it matches a topic: does this article add **new knowledge** beyond what the topic summary and its sources already cover?

If an item matches a topic AND does **not** add new knowledge, it is redundant and should be excluded from the brief.

Reference topic documents:
%s

Candidate RSS items:
%s

Return **only** a single JSON object, no markdown code fences, no commentary. Schema:
{"redundant_ids": ["<id1>", "<id2>", ...], "redundant_mentions": [{"id": "<id>", "topic_slug": "<slug>", "matched_fact_bullet": "- <exact bullet line from topic file>", "source_url": "<article url>"}]}
Rules for redundant_mentions:
- Include one record only when the item is redundant due to repeated knowledge already captured by a specific topic fact bullet.
- ` + "`matched_fact_bullet`" + ` must copy the exact bullet line from the topic markdown.
- Ignore YAML frontmatter fields and footnote definition lines (e.g., ` + "`[^1]: https://...`" + `) during matching.
- ` + "`source_url`" + ` should be the candidate item's link URL.
- If no repeated-fact match is available, use an empty list.
List the "id" of each candidate item that is redundant.`

const gardenerPrompt = `You are curating a **global digital garden** of evergreen topic pages.

Below are (1) this week's weekly brief, and (2) existing topic files. Propose **create** or **update** actions.

Rules:
- **create**: New topic when the brief introduces a distinct theme. Use lowercase-hyphen slug. Include title, body_markdown, sources, links_to, tags.
  - ` + "`body_markdown`" + ` must be a **fact bullet list** (` + "`- Fact...`" + `), not prose paragraphs.
- **update**: When an item adds to an existing topic. Provide slug, append_sources, optionally summary_addendum and tags.
  - ` + "`summary_addendum`" + ` must be a **fact bullet list** (` + "`- Fact...`" + `) when present.
- Every markdown text addition must include source attribution using markdown footnotes with URL definitions, e.g. [^1] and [^1]: https://example.com.

This week's brief (category: %s):
%s

Existing topic files (slug and preview):
%s

Return **only** a single JSON object. Schema:
{"topic_actions": [{ "action": "create" | "update", "slug": "<slug>", "title": "<title>", "body_markdown": "<markdown>", "sources": ["url"], "links_to": ["slug"], "append_sources": ["url"], "summary_addendum": "<markdown>", "tags": ["tag"] }]}
Bullet examples for markdown fields:
- body_markdown: "- Fact one.\n- Fact two."
- summary_addendum: "- New finding one.\n- New finding two."
Omit topic_actions or use [] if nothing to do.`

const triageSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "week_of": {"type": "string"},
    "notes": {"type": "string"},
    "ranked": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "id": {"type": "string", "maxLength": 128},
          "title": {"type": "string", "maxLength": 400},
          "link": {"type": "string", "maxLength": 2048},
          "source": {"type": "string", "maxLength": 200},
          "published_utc": {"type": ["string", "null"]},
          "score": {"type": "number", "minimum": 0, "maximum": 1},
          "why": {"type": "string", "maxLength": 320},
          "tags": {
            "type": "array",
            "minItems": 1,
            "maxItems": 8,
            "items": {"type": "string", "maxLength": 40}
          }
        },
        "required": ["id", "title", "link", "source", "published_utc", "score", "why", "tags"]
      }
    }
  },
  "required": ["week_of", "notes", "ranked"]
}`

const redundancySchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "redundant_ids": {"type": "array", "items": {"type": "string"}},
    "redundant_mentions": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "id": {"type": "string"},
          "topic_slug": {"type": "string"},
          "matched_fact_bullet": {"type": "string"},
          "source_url": {"type": "string"}
        },
        "required": ["id", "topic_slug", "matched_fact_bullet", "source_url"]
      }
    }
  },
  "required": ["redundant_ids", "redundant_mentions"]
}`

const gardenerSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "topic_actions": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "action": {"type": "string", "enum": ["create", "update"]},
          "slug": {"type": "string"},
          "title": {"type": ["string", "null"]},
          "body_markdown": {"type": ["string", "null"]},
          "sources": {"type": ["array", "null"], "items": {"type": "string"}},
          "links_to": {"type": ["array", "null"], "items": {"type": "string"}},
          "append_sources": {"type": ["array", "null"], "items": {"type": "string"}},
          "summary_addendum": {"type": ["string", "null"]},
          "tags": {"type": ["array", "null"], "items": {"type": "string"}}
        },
        "required": ["action", "slug", "title", "body_markdown", "sources", "links_to", "append_sources", "summary_addendum", "tags"]
      }
    }
  },
  "required": ["topic_actions"]
}`
