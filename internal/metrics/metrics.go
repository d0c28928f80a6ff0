package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "df_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "df_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache"},
	)

	// CacheEvictions is labelled by reason: expired (lazy), scheduled (eager
	// timer) or capacity (LRU bound).
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "df_cache_evictions_total",
			Help: "Cache evictions",
		},
		[]string{"cache", "reason"},
	)

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "df_provider_requests_total",
			Help: "Outbound provider calls by outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "df_probe_duration_seconds",
			Help:    "Time spent probing a single platform",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"platform"},
	)

	Scans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "df_scans_total",
			Help: "Completed scans by input kind and breach data source",
		},
		[]string{"kind", "source"},
	)

	ExposureScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "df_exposure_score",
			Help:    "Distribution of computed exposure scores",
			Buckets: []float64{0, 15, 40, 70, 100},
		},
	)
)
