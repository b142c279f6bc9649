package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridstream_worker_events_total",
			Help: "Total number of events processed",
		},
		[]string{"personality", "status"},
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridstream_worker_auth_failures_total",
			Help: "Total number of tenant authentication failures",
		},
		[]string{"tenant_id"},
	)

	IdentityCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridstream_worker_identity_cache_total",
			Help: "Identity cache lookups by outcome",
		},
		[]string{"result"},
	)

	CorrelationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridstream_worker_correlation_duration_seconds",
			Help:    "Duration of event correlation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RouteAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridstream_worker_route_attempts_total",
			Help: "Downstream route attempts by outcome",
		},
		[]string{"service_domain", "outcome"},
	)

	RouteExhaustions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridstream_worker_route_exhaustions_total",
			Help: "Routes where every candidate failed",
		},
		[]string{"service_domain"},
	)

	BlacklistedWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gridstream_worker_blacklisted_workers",
			Help: "Workers currently blacklisted by the router",
		},
	)

	DurableJobsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridstream_worker_durable_jobs_published_total",
			Help: "Durable job records published to the job stream",
		},
	)

	SinkIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridstream_worker_sink_indexed_total",
			Help: "Events indexed to the storage sink by outcome",
		},
		[]string{"outcome"},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridstream_worker_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"tenant_id"},
	)

	RelayNudges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridstream_worker_relay_nudges_total",
			Help: "Topology nudges delivered by the broadcast relay",
		},
		[]string{"outcome"},
	)
)
