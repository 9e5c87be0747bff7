// Package metrics holds the Prometheus collectors of the siamese service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FitsTotal counts threshold fits by outcome ("ok", "insufficient_data", "error")
	FitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siamese_fits_total",
			Help: "Total number of threshold fits",
		},
		[]string{"classifier", "outcome"},
	)

	// FitAccuracy is the training accuracy of the latest fit per classifier
	FitAccuracy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "siamese_fit_accuracy",
			Help: "Training accuracy of the most recent threshold fit",
		},
		[]string{"classifier"},
	)

	// FitThreshold is the latest fitted threshold per classifier
	FitThreshold = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "siamese_fit_threshold",
			Help: "Most recently fitted distance threshold",
		},
		[]string{"classifier"},
	)

	// DecisionsTotal counts pair decisions by result ("same", "different")
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siamese_decisions_total",
			Help: "Total number of pair classifications",
		},
		[]string{"classifier", "result"},
	)

	// PairDistance observes scored distances; the default metric is bounded in [0, 4]
	PairDistance = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "siamese_pair_distance",
			Help:    "Distribution of scored pair distances",
			Buckets: prometheus.LinearBuckets(0, 0.25, 17),
		},
	)

	// ScoreDuration measures how long scoring a pair takes, backbone included
	ScoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "siamese_score_duration_seconds",
			Help:    "Time spent scoring a pair",
			Buckets: prometheus.DefBuckets,
		},
	)

	// EmbeddingCacheTotal counts embedding cache lookups by tier and result
	EmbeddingCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siamese_embedding_cache_total",
			Help: "Embedding cache lookups",
		},
		[]string{"tier", "result"},
	)

	// HTTPRequestDuration measures API latency by route template and status
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "siamese_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
