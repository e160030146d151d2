package parkfind

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the resolution lifecycle
// and reliability layers. It is safe for concurrent use; a nil collector is
// a no-op.
type MetricsCollector struct {
	resolutionsTotal    *prometheus.CounterVec
	resolutionDuration  *prometheus.HistogramVec
	resolutionsInFlight *prometheus.GaugeVec

	providerRequestsTotal *prometheus.CounterVec
	retriesTotal          *prometheus.CounterVec
	fallbacksTotal        *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheSize   *prometheus.GaugeVec

	coalescedTotal *prometheus.CounterVec

	rateLimiterTokens *prometheus.GaugeVec

	batchesTotal prometheus.Counter
	batchSize    prometheus.Histogram

	errorsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	mc := &MetricsCollector{
		resolutionsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "parkfind_resolutions_total",
				Help: "Total number of route resolutions by outcome method",
			},
			[]string{"profile", "method"},
		),
		resolutionDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parkfind_resolution_duration_seconds",
				Help:    "Duration of route resolutions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"profile", "method"},
		),
		resolutionsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "parkfind_resolutions_in_flight",
				Help: "Number of resolutions currently in flight",
			},
			[]string{"profile"},
		),
		providerRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "parkfind_provider_requests_total",
				Help: "Total number of HTTP requests made to the routing provider",
			},
			[]string{"profile", "status_code"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "parkfind_retries_total",
				Help: "Total number of provider retry attempts",
			},
			[]string{"profile", "attempt"},
		),
		fallbacksTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "parkfind_fallbacks_total",
				Help: "Total number of resolutions degraded to a geometry estimate",
			},
			[]string{"profile", "reason"},
		),
		cacheHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "parkfind_cache_hits_total",
				Help: "Total number of route cache hits",
			},
			[]string{"profile"},
		),
		cacheMisses: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "parkfind_cache_misses_total",
				Help: "Total number of route cache misses",
			},
			[]string{"profile"},
		),
		cacheSize: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "parkfind_cache_size",
				Help: "Current number of entries in the route cache",
			},
			[]string{"name"},
		),
		coalescedTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "parkfind_coalesced_total",
				Help: "Total number of resolutions served by another caller's in-flight request",
			},
			[]string{"profile"},
		),
		rateLimiterTokens: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "parkfind_rate_limiter_tokens",
				Help: "Current number of available rate limiter tokens",
			},
			[]string{"name"},
		),
		batchesTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "parkfind_batches_total",
				Help: "Total number of batch dispatch groups",
			},
		),
		batchSize: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "parkfind_batch_size",
				Help:    "Number of routed destinations per dispatched batch",
				Buckets: []float64{1, 2, 3, 4, 5, 8, 13, 21},
			},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "parkfind_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type", "profile"},
		),
	}

	if r, ok := registry.(*prometheus.Registry); ok {
		mc.registry = r
	}

	return mc
}

// RecordResolution records outcome method and duration of one resolution.
func (mc *MetricsCollector) RecordResolution(profile Profile, method ResolveMethod, duration time.Duration) {
	if mc == nil {
		return
	}

	mc.resolutionsTotal.WithLabelValues(string(profile), string(method)).Inc()
	mc.resolutionDuration.WithLabelValues(string(profile), string(method)).Observe(duration.Seconds())
}

// RecordResolutionStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordResolutionStart(profile Profile) {
	if mc == nil {
		return
	}

	mc.resolutionsInFlight.WithLabelValues(string(profile)).Inc()
}

// RecordResolutionEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordResolutionEnd(profile Profile) {
	if mc == nil {
		return
	}

	mc.resolutionsInFlight.WithLabelValues(string(profile)).Dec()
}

// RecordProviderRequest increments the provider request counter. A zero
// status code marks a transport failure.
func (mc *MetricsCollector) RecordProviderRequest(profile Profile, statusCode int) {
	if mc == nil {
		return
	}

	mc.providerRequestsTotal.WithLabelValues(string(profile), strconv.Itoa(statusCode)).Inc()
}

// RecordRetry increments the retry counter for an attempt.
func (mc *MetricsCollector) RecordRetry(profile Profile, attempt int) {
	if mc == nil {
		return
	}

	mc.retriesTotal.WithLabelValues(string(profile), strconv.Itoa(attempt)).Inc()
}

// RecordFallback increments the fallback counter.
func (mc *MetricsCollector) RecordFallback(profile Profile, reason string) {
	if mc == nil {
		return
	}

	mc.fallbacksTotal.WithLabelValues(string(profile), reason).Inc()
}

// RecordCacheHit increments the cache hit counter.
func (mc *MetricsCollector) RecordCacheHit(profile Profile) {
	if mc == nil {
		return
	}

	mc.cacheHits.WithLabelValues(string(profile)).Inc()
}

// RecordCacheMiss increments the cache miss counter.
func (mc *MetricsCollector) RecordCacheMiss(profile Profile) {
	if mc == nil {
		return
	}

	mc.cacheMisses.WithLabelValues(string(profile)).Inc()
}

// RecordCacheSize sets the cache size gauge.
func (mc *MetricsCollector) RecordCacheSize(name string, size int) {
	if mc == nil {
		return
	}

	mc.cacheSize.WithLabelValues(name).Set(float64(size))
}

// RecordCoalesced increments the coalesced resolution counter.
func (mc *MetricsCollector) RecordCoalesced(profile Profile) {
	if mc == nil {
		return
	}

	mc.coalescedTotal.WithLabelValues(string(profile)).Inc()
}

// RecordRateLimiterTokens sets the available token gauge.
func (mc *MetricsCollector) RecordRateLimiterTokens(name string, tokens int) {
	if mc == nil {
		return
	}

	mc.rateLimiterTokens.WithLabelValues(name).Set(float64(tokens))
}

// RecordBatch records one dispatched batch and its size.
func (mc *MetricsCollector) RecordBatch(size int) {
	if mc == nil {
		return
	}

	mc.batchesTotal.Inc()
	mc.batchSize.Observe(float64(size))
}

// RecordError increments the error counter by type.
func (mc *MetricsCollector) RecordError(errorType string, profile Profile) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType, string(profile)).Inc()
}

// GetRegistry exposes the underlying prometheus registry.
func (mc *MetricsCollector) GetRegistry() *prometheus.Registry {
	return mc.registry
}
