// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_verifications_total",
			Help: "Total number of attendance verification attempts by outcome",
		},
		[]string{"outcome"},
	)

	TokensIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attendance_tokens_issued_total",
			Help: "Total number of day tokens issued",
		},
	)

	VerifyDistanceHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attendance_verify_distance_meters",
			Help:    "Distribution of reported distances from the anchor",
			Buckets: prometheus.LinearBuckets(0, 50, 10),
		},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
