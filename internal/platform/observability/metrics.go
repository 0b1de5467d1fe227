// Package observability exposes Prometheus metrics for weekly runs.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedItemsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "garden_feed_items_fetched_total",
		Help: "The total number of feed items fetched",
	}, []string{"topic"})

	ItemsDeduped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "garden_items_deduped_total",
		Help: "The total number of items dropped as duplicates or already-seen URLs",
	}, []string{"topic", "reason"})

	LinksSanitized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "garden_links_sanitized_total",
		Help: "The total number of links processed by the sanitizer",
	}, []string{"outcome"})

	HeadingResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "garden_heading_resolutions_total",
		Help: "The total number of brief heading link resolution outcomes",
	}, []string{"outcome"})

	MentionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "garden_mentions_total",
		Help: "The total number of redundancy mention outcomes",
	}, []string{"outcome"})

	GardenerActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "garden_gardener_actions_total",
		Help: "The total number of topic gardener actions",
	}, []string{"action", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "garden_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	WeeklyRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "garden_weekly_run_duration_seconds",
		Help:    "Duration of a full weekly run per topic",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"topic", "status"})
)
