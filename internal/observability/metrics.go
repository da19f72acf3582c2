package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate on the presentation surface.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency. Route is the mux path template to bound cardinality.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Response body size per route.
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Backend calls by endpoint (coords, zip) and status label. Watch for: error vs success ratio.
	BackendCallsTotal *prometheus.CounterVec

	// Backend latency per call.
	BackendDuration *prometheus.HistogramVec

	// Cache lookups by result: hit, miss, stale, error.
	CacheLookupsTotal *prometheus.CounterVec

	// Cache clears (manual "clear all").
	CacheClearsTotal prometheus.Counter

	// Concurrent misses for the same key. Watch for: duplicate backend fetches.
	CacheStampedeDetectedTotal prometheus.Counter

	// Lookups answered by an in-flight fetch started by another caller.
	RequestsCoalescedTotal prometheus.Counter

	// Cache warming runs, failures and duration.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// User-facing errors surfaced by the service, by kind.
	UserErrorsTotal *prometheus.CounterVec

	// Landing submissions by method (zip, geolocation) and result.
	LandingSubmissionsTotal *prometheus.CounterVec

	// Rate limit denials on /api.
	RateLimitDeniedTotal prometheus.Counter

	cacheGaugeOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	HTTPResponseSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpResponseSizeBytes",
			Help:    "HTTP response body size in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 7),
		},
		[]string{"route"},
	)
	BackendCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backendCallsTotal",
			Help: "Total number of weather backend calls",
		},
		[]string{"endpoint", "status"},
	)
	BackendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backendDurationSeconds",
			Help:    "Weather backend latency in seconds (per call)",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheLookupsTotal",
			Help: "Snapshot cache lookups by result (hit, miss, stale, error)",
		},
		[]string{"result"},
	)
	CacheClearsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheClearsTotal",
			Help: "Total number of cache clear operations",
		},
	)
	CacheStampedeDetectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheStampedeDetectedTotal",
			Help: "Cache misses that overlapped another in-progress miss for the same key",
		},
	)
	RequestsCoalescedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "requestsCoalescedTotal",
			Help: "Lookups served by waiting on another caller's in-flight fetch",
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Total number of cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache warming runs with at least one failed location",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Duration of cache warming runs",
			Buckets: prometheus.DefBuckets,
		},
	)
	UserErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "userErrorsTotal",
			Help: "Errors surfaced to the user, by kind",
		},
		[]string{"kind"},
	)
	LandingSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landingSubmissionsTotal",
			Help: "Landing page submissions by method and result",
		},
		[]string{"method", "result"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight, HTTPResponseSizeBytes,
		BackendCallsTotal, BackendDuration,
		CacheLookupsTotal, CacheClearsTotal, CacheStampedeDetectedTotal, RequestsCoalescedTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
		UserErrorsTotal, LandingSubmissionsTotal,
		RateLimitDeniedTotal,
	)
}

// RegisterCacheEntriesGauge exposes the number of cached snapshots. Only the first call registers.
func RegisterCacheEntriesGauge(size func() int) {
	cacheGaugeOnce.Do(func() {
		registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "cacheEntries",
				Help: "Snapshots currently held in the in-memory cache (fresh or stale)",
			},
			func() float64 { return float64(size()) },
		))
	})
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
