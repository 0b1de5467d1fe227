package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/lueurxax/topic-garden/internal/core/domain"
	"github.com/lueurxax/topic-garden/internal/core/facts"
	"github.com/lueurxax/topic-garden/internal/core/links"
)

const (
	backendOpenAI = "openai"

	rateLimiterBurst        = 5
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = 1 * time.Minute

	defaultMaxAttempts     = 3
	defaultSummaryMaxChars = 500

	errRateLimiter          = "rate limiter: %w"
	errOpenAIChatCompletion = "openai chat completion: %w"
)

// ErrCircuitBreakerOpen indicates the circuit breaker is open.
var ErrCircuitBreakerOpen = fmt.Errorf("circuit breaker is open")

// Options configures the OpenAI-backed client.
type Options struct {
	APIKey          string
	Model           string
	RateLimitRPS    float64
	MaxAttempts     int
	SummaryMaxChars int
}

type openaiClient struct {
	opts        Options
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter

	// Circuit breaker state
	consecutiveFailures int
	circuitOpenUntil    time.Time
	mu                  sync.Mutex
}

// NewOpenAI returns a Client backed by the OpenAI chat completion API with
// schema-constrained JSON responses.
func NewOpenAI(opts Options, logger *zerolog.Logger) Client {
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}

	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 1
	}

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}

	if opts.SummaryMaxChars <= 0 {
		opts.SummaryMaxChars = defaultSummaryMaxChars
	}

	return &openaiClient{
		opts:        opts,
		client:      openai.NewClient(opts.APIKey),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RateLimitRPS), rateLimiterBurst),
	}
}

func (c *openaiClient) Provenance() domain.Provenance {
	return domain.Provenance{Backend: backendOpenAI, Model: c.opts.Model}
}

type leanItem struct {
	ID           string  `json:"id"`
	Source       string  `json:"source"`
	Title        string  `json:"title"`
	Link         string  `json:"link"`
	PublishedUTC *string `json:"published_utc"`
	Summary      string  `json:"summary"`
}

func (c *openaiClient) leanItems(items []domain.Item) []leanItem {
	out := make([]leanItem, 0, len(items))

	for _, it := range items {
		lean := leanItem{
			ID:      it.ID,
			Source:  it.Source,
			Title:   it.Title,
			Link:    it.Link,
			Summary: truncate(it.Summary, c.opts.SummaryMaxChars),
		}

		if !it.PublishedUTC.IsZero() {
			published := it.PublishedUTC.UTC().Format(time.RFC3339)
			lean.PublishedUTC = &published
		}

		out = append(out, lean)
	}

	return out
}

func (c *openaiClient) Triage(ctx context.Context, req TriageRequest) (domain.TriageResult, error) {
	itemsJSON, err := json.Marshal(c.leanItems(req.Items))
	if err != nil {
		return domain.TriageResult{}, fmt.Errorf("marshal triage items: %w", err)
	}

	prompt := fmt.Sprintf(triagePrompt, req.Interests, req.WeekOf, itemsJSON)

	content, err := c.structuredJSON(ctx, "weekly_triage", prompt, triageSchema)
	if err != nil {
		return domain.TriageResult{}, err
	}

	result, err := parseTriage(content, req)
	if err != nil {
		return domain.TriageResult{}, err
	}

	result.LLMBackend = backendOpenAI
	result.LLMModel = c.opts.Model

	return result, nil
}

func (c *openaiClient) DetectRedundancy(ctx context.Context, req RedundancyRequest) (RedundancyResult, error) {
	if len(req.TopicRefs) == 0 || len(req.Items) == 0 {
		return RedundancyResult{}, nil
	}

	itemsJSON, err := json.Marshal(c.leanItems(req.Items))
	if err != nil {
		return RedundancyResult{}, fmt.Errorf("marshal redundancy items: %w", err)
	}

	prompt := fmt.Sprintf(redundancyPrompt, renderTopicRefs(req.TopicRefs), itemsJSON)

	content, err := c.structuredJSON(ctx, "topic_redundancy", prompt, redundancySchema)
	if err != nil {
		return RedundancyResult{}, err
	}

	return parseRedundancy(content, req)
}

func (c *openaiClient) ProposeTopicActions(ctx context.Context, req GardenerRequest) ([]domain.TopicAction, error) {
	existing := "(no existing topics yet)"

	if len(req.ExistingTopics) > 0 {
		previews := make([]string, 0, len(req.ExistingTopics))
		for _, t := range req.ExistingTopics {
			previews = append(previews, fmt.Sprintf("- **%s**:\n%s", t.Slug, t.Preview))
		}

		existing = strings.Join(previews, "\n\n")
	}

	prompt := fmt.Sprintf(gardenerPrompt, req.Topic, req.BriefContent, existing)

	content, err := c.structuredJSON(ctx, "topic_gardener", prompt, gardenerSchema)
	if err != nil {
		return nil, err
	}

	return parseTopicActions(content)
}

// renderTopicRefs renders topic bodies for the redundancy prompt with
// footnote definition lines stripped, so the model matches against fact
// bullets rather than URL lists.
func renderTopicRefs(refs []TopicRef) string {
	rendered := make([]string, 0, len(refs))

	for _, ref := range refs {
		var kept []string

		for _, line := range strings.Split(ref.Body, "\n") {
			if facts.IsFootnoteDefinition(line) {
				continue
			}

			kept = append(kept, strings.TrimRight(line, " \t"))
		}

		body := strings.TrimSpace(strings.Join(kept, "\n"))
		if body == "" {
			continue
		}

		rendered = append(rendered, fmt.Sprintf("[BEGIN TOPIC: %s]\n%s\n[END TOPIC: %s]", ref.Slug, body, ref.Slug))
	}

	if len(rendered) == 0 {
		return "(no readable topic content)"
	}

	return strings.Join(rendered, "\n\n")
}

// Compose runs a freeform markdown task (the roundup writers); the response
// is plain chat output, not schema-constrained.
func (c *openaiClient) Compose(ctx context.Context, name, prompt string) (string, error) {
	return c.chatCompletion(ctx, name, prompt, nil)
}

func (c *openaiClient) structuredJSON(ctx context.Context, name, prompt, schema string) (string, error) {
	return c.chatCompletion(ctx, name, prompt, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   name,
			Schema: json.RawMessage(schema),
		},
	})
}

func (c *openaiClient) chatCompletion(ctx context.Context, name, prompt string, format *openai.ChatCompletionResponseFormat) (string, error) {
	if err := c.checkCircuit(); err != nil {
		return "", err
	}

	var lastErr error

	for attempt := 0; attempt < c.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(1<<attempt) * time.Second):
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf(errRateLimiter, err)
		}

		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.opts.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			ResponseFormat: format,
		})
		if err != nil {
			c.recordFailure()

			lastErr = fmt.Errorf(errOpenAIChatCompletion, err)

			c.logger.Warn().Err(err).Str("task", name).Int("attempt", attempt+1).Msg("model call failed")

			continue
		}

		c.recordSuccess()

		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return "", fmt.Errorf("%w: task %s", ErrEmptyResponse, name)
		}

		return resp.Choices[0].Message.Content, nil
	}

	return "", lastErr
}

func (c *openaiClient) checkCircuit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.circuitOpenUntil) {
		return fmt.Errorf("%w until %v", ErrCircuitBreakerOpen, c.circuitOpenUntil)
	}

	return nil
}

func (c *openaiClient) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures = 0
}

func (c *openaiClient) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures++
	if c.consecutiveFailures >= circuitBreakerThreshold {
		c.circuitOpenUntil = time.Now().Add(circuitBreakerTimeout)
		c.logger.Warn().
			Int("consecutive_failures", c.consecutiveFailures).
			Time("open_until", c.circuitOpenUntil).
			Msg("Circuit breaker opened")
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max]) + "…"
}

// resolveMentionURL maps a model-supplied source URL back onto the
// allow-list, falling back to the item's own link.
func resolveMentionURL(raw, itemLink string, allowed links.Index) string {
	return links.ResolveAllowed(raw, itemLink, allowed)
}
