package recurrence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments an Engine.
type Metrics struct {
	expansions     *prometheus.CounterVec
	budgetExceeded prometheus.Counter
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	duration       *prometheus.HistogramVec
}

// NewMetrics registers the engine metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		expansions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "calrecur_expansions_total",
			Help: "Total number of recurrence set evaluations.",
		}, []string{"operation"}),
		budgetExceeded: f.NewCounter(prometheus.CounterOpts{
			Name: "calrecur_budget_exceeded_total",
			Help: "Total number of rule expansions stopped by their budget.",
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "calrecur_cache_hits_total",
			Help: "Total number of evaluations answered from the cache.",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "calrecur_cache_misses_total",
			Help: "Total number of evaluations not found in the cache.",
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "calrecur_expansion_duration_seconds",
			Help:    "Histogram of recurrence set evaluation latencies.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}
