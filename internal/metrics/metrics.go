// Package metrics holds the Prometheus collectors for the punchline pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CrawlPath = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_crawl_path_total",
			Help: "Pipeline runs by the crawl path that produced their pages",
		},
		[]string{"path"},
	)

	QCRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_qc_rejections_total",
			Help: "Generated lines discarded by quality control, by reason",
		},
		[]string{"reason"},
	)

	GenerationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_generation_errors_total",
			Help: "Model calls that failed or timed out",
		},
	)

	FallbackLines = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_fallback_lines_total",
			Help: "Manual-review lines returned in place of generated copy",
		},
	)

	BreakerOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "outreach_breaker_open",
			Help: "1 while the named upstream's circuit breaker rejects calls",
		},
		[]string{"name"},
	)

	Retries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_retries_total",
			Help: "Retried calls to external services, by operation",
		},
		[]string{"op"},
	)

	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_llm_tokens_total",
			Help: "Tokens billed by model backends, by provider and direction",
		},
		[]string{"provider", "direction"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outreach_pipeline_duration_seconds",
			Help:    "End-to-end duration of a pipeline run",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 60, 120},
		},
	)
)
