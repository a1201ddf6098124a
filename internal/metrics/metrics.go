// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "baristabot_chat_requests_total",
			Help: "Total number of answered chat requests by intent",
		},
		[]string{"intent"},
	)

	ChatBlocked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "baristabot_chat_blocked_total",
			Help: "Total number of chat requests rejected by the safety filter",
		},
	)

	ChatDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "baristabot_chat_duration_seconds",
			Help:    "Duration of chat request processing in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"intent"},
	)

	ExtractedProducts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "baristabot_extracted_products_total",
			Help: "Total number of product mentions extracted from replies",
		},
	)

	LLMErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "baristabot_llm_errors_total",
			Help: "Total number of failed completion calls",
		},
	)

	TaskRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "baristabot_task_runs_total",
			Help: "Total number of scheduled task runs by task and outcome",
		},
		[]string{"task", "outcome"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "baristabot_circuit_breaker_state",
			Help: "Circuit breaker state by name: 0 closed, 1 half-open, 2 open",
		},
		[]string{"name"},
	)
)
