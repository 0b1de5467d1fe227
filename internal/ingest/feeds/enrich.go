package feeds

import (
	"context"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/lueurxax/topic-garden/internal/core/domain"
)

var whitespaceRunsRe = regexp.MustCompile(`\s+`)

// Enricher replaces thin RSS summaries with extracted article text.
type Enricher struct {
	timeout  time.Duration
	maxChars int
	logger   *zerolog.Logger
}

// NewEnricher returns an enricher with the given per-article timeout.
func NewEnricher(timeout time.Duration, maxChars int, logger *zerolog.Logger) *Enricher {
	if maxChars <= 0 {
		maxChars = defaultSummaryMax
	}

	return &Enricher{timeout: timeout, maxChars: maxChars, logger: logger}
}

// Enrich fetches each item's article and swaps in the extracted text as the
// summary. Extraction failures keep the original summary; enrichment is
// best-effort by design.
func (e *Enricher) Enrich(ctx context.Context, items []domain.Item) []domain.Item {
	for i, item := range items {
		if ctx.Err() != nil {
			break
		}

		if item.Link == "" {
			continue
		}

		article, err := readability.FromURL(item.Link, e.timeout)
		if err != nil {
			e.logger.Debug().Err(err).Str("link", item.Link).Msg("article extraction failed")

			continue
		}

		text := strings.TrimSpace(whitespaceRunsRe.ReplaceAllString(article.TextContent, " "))
		if text == "" {
			continue
		}

		items[i].Summary = truncateRunes(text, e.maxChars)
	}

	return items
}

// NormalizeSummary strips HTML tags from a feed summary, collapses
// whitespace, and truncates to maxChars.
func NormalizeSummary(raw string, maxChars int) string {
	text := strings.TrimSpace(whitespaceRunsRe.ReplaceAllString(stripHTML(raw), " "))

	return truncateRunes(text, maxChars)
}

// stripHTML extracts the text content of an HTML fragment. The tokenizer
// also unescapes entities.
func stripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return fragment
	}

	tokenizer := html.NewTokenizer(strings.NewReader(fragment))

	var b strings.Builder

	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			break
		}

		if tokenType == html.TextToken {
			b.Write(tokenizer.Text())
			b.WriteByte(' ')
		}
	}

	return b.String()
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max]) + "…"
}
