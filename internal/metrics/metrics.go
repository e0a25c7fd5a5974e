// Package metrics provides optional Prometheus collectors.
//
// Constructors take a Registerer and return nil when it is nil, which the
// instrumented components treat as "metrics disabled".
package metrics

import (
	"net/http"
	"time"

	"github.com/CageChen/layerhub/internal/finder"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics in reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

type finderMetrics struct {
	lookups       *prometheus.CounterVec
	lookupLatency *prometheus.HistogramVec
	invalidations *prometheus.CounterVec
	searchPaths   prometheus.Gauge
}

// NewFinderMetrics returns finder.Metrics backed by reg, or nil if reg is nil.
func NewFinderMetrics(reg prometheus.Registerer) finder.Metrics {
	if reg == nil {
		return nil
	}

	return &finderMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "layerhub_finder_lookups_total",
				Help: "Total number of finder lookups",
			},
			[]string{"mode", "cache", "result"},
		),
		lookupLatency: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "layerhub_finder_lookup_duration_seconds",
				Help: "Duration of finder lookups in seconds",
				Buckets: []float64{
					0.000001, // 1µs
					0.00001,  // 10µs
					0.0001,   // 100µs
					0.001,    // 1ms
					0.01,     // 10ms
					0.1,      // 100ms
				},
			},
			[]string{"cache"},
		),
		invalidations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "layerhub_finder_cache_invalidations_total",
				Help: "Total number of cached lookups dropped, by reason",
			},
			[]string{"reason"},
		),
		searchPaths: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "layerhub_finder_search_paths",
				Help: "Number of registered search paths",
			},
		),
	}
}

func (m *finderMetrics) ObserveLookup(mode finder.Mode, cached, found bool, d time.Duration) {
	cache := "miss"
	if cached {
		cache = "hit"
	}
	result := "not_found"
	if found {
		result = "found"
	}
	m.lookups.WithLabelValues(mode.String(), cache, result).Inc()
	m.lookupLatency.WithLabelValues(cache).Observe(d.Seconds())
}

func (m *finderMetrics) RecordInvalidation(reason string, n int) {
	if n <= 0 {
		return
	}
	m.invalidations.WithLabelValues(reason).Add(float64(n))
}

func (m *finderMetrics) RecordSearchPaths(n int) {
	m.searchPaths.Set(float64(n))
}
