package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"route", "status"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coverage_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"route"})

	ResolveDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "coverage_resolve_duration_ms",
		Help:    "Polygon resolution duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	ResolveResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_resolve_results_total",
		Help: "Polygon resolutions by outcome (computed, empty, not_computed, invalid)",
	}, []string{"outcome"})
	HullDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coverage_hull_duration_ms",
		Help:    "Hull synthesis duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"kind"})

	MutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_mutations_total",
		Help: "Coverage mutations by operation and result",
	}, []string{"operation", "result"})

	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coverage_geocode_requests_total",
		Help: "External geocoding lookups",
	})
	GeocodeFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coverage_geocode_fail_total",
		Help: "External geocoding lookups that failed or resolved nothing",
	})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coverage_cache_hits_total",
		Help: "Worker coverage cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coverage_cache_misses_total",
		Help: "Worker coverage cache misses",
	})

	RegistrySize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coverage_registry_postal_codes",
		Help: "Postal codes held by the in-memory registry",
	})
	RegistryWriteDropsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coverage_registry_write_drops_total",
		Help: "Geocoded rows dropped because the write-behind queue was full",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(ResolveDurationMs)
	prometheus.MustRegister(ResolveResultsTotal)
	prometheus.MustRegister(HullDurationMs)
	prometheus.MustRegister(MutationsTotal)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeFailTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(RegistrySize)
	prometheus.MustRegister(RegistryWriteDropsTotal)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
