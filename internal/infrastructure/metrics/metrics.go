package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Portal-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "portal_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "portal_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// Chat message counters
	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "portal_api",
			Name:      "messages_sent_total",
			Help:      "Total chat messages sent",
		},
		[]string{"sender_role", "status"},
	)

	// Live message streams currently open
	ActiveMessageStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "portal",
			Subsystem: "portal_api",
			Name:      "active_message_streams",
			Help:      "Open live message subscriptions",
		},
	)

	// Notification feed fetches
	FeedFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "portal_api",
			Name:      "feed_fetches_total",
			Help:      "Total notification feed fetches",
		},
		[]string{"viewer_role", "status"},
	)

	// Degraded sources observed during feed fetches
	DegradedSourcesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "portal_api",
			Name:      "degraded_sources_total",
			Help:      "Notification sources that failed during aggregation",
		},
		[]string{"source"},
	)

	// Unread-counter drift repaired by reconciliation
	ReconcileDriftTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "portal_api",
			Name:      "reconcile_drift_total",
			Help:      "Unread counter drift observations repaired by reconcile",
		},
		[]string{"role"},
	)

	// Reconciliation sweep duration
	ReconcileSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "portal_api",
			Name:      "reconcile_sweep_duration_seconds",
			Help:      "Duration of full reconciliation sweeps",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60},
		},
	)

	// Store query duration
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "portal_api",
			Name:      "store_query_duration_seconds",
			Help:      "Document store query duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"collection", "operation"},
	)
)
