package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan outcomes used as the outcome label of ScansTotal.
const (
	OutcomeRecorded  = "recorded"
	OutcomeDuplicate = "duplicate"
	OutcomeNoMatch   = "no_match"
	OutcomeNoFace    = "no_face"
	OutcomeError     = "error"
)

var (
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "scans_total",
		Help:      "Face scans by outcome",
	}, []string{"outcome"})

	TemplatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "templates_skipped_total",
		Help:      "Stored templates skipped during matching because they were missing or unreadable",
	})

	MatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "match_duration_seconds",
		Help:      "Duration of a template scan",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	ExtractDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "extract_duration_seconds",
		Help:      "Duration of face embedding extraction",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	CheckInsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "checkins_recorded_total",
		Help:      "Attendance entries written",
	}, []string{"event"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "attendance",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
