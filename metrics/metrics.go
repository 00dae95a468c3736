// Package metrics 定义推荐链路的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline
	PipelineNodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plateful_pipeline_node_duration_seconds",
			Help:    "Duration of a single pipeline node run",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node", "kind"},
	)

	PipelineNodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plateful_pipeline_node_errors_total",
			Help: "Total number of pipeline node failures",
		},
		[]string{"node"},
	)

	// Recommendation service
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plateful_recommendations_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"}, // "ok", "guest", "error"
	)

	RecommendationItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plateful_recommendation_items",
			Help:    "Number of items returned per recommendation request",
			Buckets: []float64{0, 1, 3, 6, 12, 24, 50},
		},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plateful_recommendation_duration_seconds",
			Help:    "End-to-end recommendation latency including data fetches",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Votes
	VotesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plateful_votes_total",
			Help: "Total number of vote mutations",
		},
		[]string{"action"}, // "up", "down", "remove"
	)

	// Remote API
	RemoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plateful_remote_requests_total",
			Help: "Total number of REST API requests by endpoint and result",
		},
		[]string{"endpoint", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plateful_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
