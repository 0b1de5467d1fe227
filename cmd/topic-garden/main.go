package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lueurxax/topic-garden/internal/core/llm"
	"github.com/lueurxax/topic-garden/internal/ingest/feeds"
	"github.com/lueurxax/topic-garden/internal/platform/config"
	"github.com/lueurxax/topic-garden/internal/process/roundup"
	"github.com/lueurxax/topic-garden/internal/process/weekly"
	"github.com/lueurxax/topic-garden/internal/storage/vault"
)

const (
	modeWeekly  = "weekly"
	modeMonthly = "monthly"
	modeAnnual  = "annual"
)

func main() {
	mode := flag.String("mode", modeWeekly, "Run mode: weekly, monthly or annual")
	topic := flag.String("topic", "", "Topic to run (matches config/feeds.<topic>.txt)")
	week := flag.String("week", "", "Week to run, e.g. '2026 week 8' (default: current ISO week)")
	month := flag.String("month", "", "Calendar month for the monthly roundup, e.g. '2026-01'")
	end := flag.String("end", "", "End date of a rolling monthly window, e.g. '2026-02-01'")
	days := flag.Int("days", 0, "Length of the rolling monthly window in days (default 31)")
	year := flag.Int("year", 0, "Year for the annual review (default: current year)")
	dryRun := flag.Bool("dry-run", false, "Render the brief but skip the CSV log, mentions and gardener")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsPort > 0 {
		go serveMetrics(cfg.MetricsPort, &logger)
	}

	v := vault.New(cfg.VaultRoot, &logger)

	client := llm.NewOpenAI(llm.Options{
		APIKey:          cfg.LLMAPIKey,
		Model:           cfg.LLMModel,
		RateLimitRPS:    cfg.RateLimitRPS,
		SummaryMaxChars: cfg.SummaryMaxChars,
	}, &logger)

	topics, err := resolveTopics(v, *topic)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve topics")
	}

	switch *mode {
	case modeWeekly:
		runWeekly(ctx, cfg, v, client, topics, *week, *dryRun, &logger)
	case modeMonthly:
		runMonthly(ctx, v, client, topics, roundup.MonthlyOptions{Month: *month, End: *end, Days: *days}, &logger)
	case modeAnnual:
		runAnnual(ctx, v, client, topics, *year, &logger)
	default:
		logger.Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}

func runWeekly(ctx context.Context, cfg *config.Config, v *vault.Vault, client llm.Client, topics []string, week string, dryRun bool, logger *zerolog.Logger) {
	fetcher := feeds.NewFetcher(feeds.Config{
		MaxItemsPerFeed:   cfg.MaxItemsPerFeed,
		MaxTotalItems:     cfg.MaxTotalItems,
		Lookback:          cfg.Lookback(),
		SummaryMaxChars:   cfg.SummaryMaxChars,
		RequestsPerSecond: cfg.FeedFetchRPS,
	}, logger)

	var enricher weekly.ItemEnricher
	if cfg.EnrichmentEnabled {
		enricher = feeds.NewEnricher(cfg.EnrichmentTimeout, cfg.SummaryMaxChars, logger)
	}

	runner := weekly.NewRunner(cfg, v, client, fetcher, enricher, logger)

	for _, t := range topics {
		result, err := runner.Run(ctx, weekly.RunOptions{Topic: t, WeekSpec: week, DryRun: dryRun})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info().Msg("run cancelled")
				return
			}

			logger.Fatal().Err(err).Str("topic", t).Msg("weekly run failed")
		}

		logger.Info().
			Str("topic", t).
			Str("week_of", result.WeekOf).
			Int("kept", result.Kept).
			Str("brief", result.BriefPath).
			Msg("brief written")
	}
}

func runMonthly(ctx context.Context, v *vault.Vault, client llm.Client, topics []string, opts roundup.MonthlyOptions, logger *zerolog.Logger) {
	runner := roundup.NewRunner(v, client, logger)

	for _, t := range topics {
		opts.Topic = t

		if _, err := runner.Monthly(ctx, opts); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info().Msg("run cancelled")
				return
			}

			logger.Fatal().Err(err).Str("topic", t).Msg("monthly roundup failed")
		}
	}
}

func runAnnual(ctx context.Context, v *vault.Vault, client llm.Client, topics []string, year int, logger *zerolog.Logger) {
	if year == 0 {
		year = time.Now().UTC().Year()
	}

	runner := roundup.NewRunner(v, client, logger)

	for _, t := range topics {
		if _, err := runner.Annual(ctx, roundup.AnnualOptions{Topic: t, Year: year}); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info().Msg("run cancelled")
				return
			}

			logger.Fatal().Err(err).Str("topic", t).Msg("annual review failed")
		}
	}
}

// resolveTopics returns the requested topic, or every configured topic when
// none was given.
func resolveTopics(v *vault.Vault, topic string) ([]string, error) {
	if topic != "" {
		return []string{topic}, nil
	}

	topics, err := v.ListTopics()
	if err != nil {
		return nil, err
	}

	if len(topics) == 0 {
		return nil, errors.New("no topics configured: add config/feeds.<topic>.txt and config/interests.<topic>.md")
	}

	return topics, nil
}

func serveMetrics(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
