package parkfind

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/varunveeraa/park-find-sub000/internal/backoff"
)

// WithAPIKey sets the provider credential. Without one the engine resolves
// everything geometrically.
func WithAPIKey(key string) Option {
	return func(e *Engine) {
		e.apiKey = key
	}
}

// WithBaseURL sets the provider directions endpoint.
func WithBaseURL(baseURL string) Option {
	return func(e *Engine) {
		e.baseURL = baseURL
	}
}

// WithRoutingDisabled turns off remote routing globally; every resolution
// is a geometry estimate.
func WithRoutingDisabled() Option {
	return func(e *Engine) {
		e.routingEnabled = false
	}
}

// WithHTTPClient sets a custom HTTP transport for provider calls.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		e.httpClient = client
	}
}

// WithRouteClient replaces the provider client wholesale. Intended for
// tests and exotic providers.
func WithRouteClient(client *RouteClient) Option {
	return func(e *Engine) {
		e.client = client
	}
}

// WithRequestTimeout bounds each individual provider attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.requestTimeout = d
	}
}

// WithMaxRetries sets the number of additional attempts beyond the first.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		e.maxRetries = n
	}
}

// WithBackoff tunes the retry schedule: initial delay, cap, growth factor
// and jitter fraction (0 to 1).
func WithBackoff(initial, max time.Duration, multiplier, jitter float64) Option {
	return func(e *Engine) {
		e.backoffSchedule = backoff.Schedule{
			Initial:    initial,
			Max:        max,
			Multiplier: multiplier,
			Jitter:     jitter,
		}
	}
}

// WithCache enables caching with the default in-memory cache and the given
// TTL for routed results.
func WithCache(ttl time.Duration) Option {
	return func(e *Engine) {
		e.cacheEnabled = true
		e.cacheTTL = ttl
	}
}

// WithCustomCache sets a custom cache implementation.
func WithCustomCache(cache Cache, ttl time.Duration) Option {
	return func(e *Engine) {
		e.cacheEnabled = true
		e.cache = cache
		e.cacheTTL = ttl
	}
}

// WithCacheDisabled turns off route caching entirely.
func WithCacheDisabled() Option {
	return func(e *Engine) {
		e.cacheEnabled = false
	}
}

// WithFallbackTTL sets the (shorter) lifetime of cached fallback results.
func WithFallbackTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.fallbackTTL = ttl
	}
}

// WithKeyValueStore persists cache entries through the given store so they
// survive process restarts. Store failures are logged and never fatal.
func WithKeyValueStore(store KeyValueStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithStraightLineThreshold sets the distance in kilometers under which
// geometry alone answers a query.
func WithStraightLineThreshold(km float64) Option {
	return func(e *Engine) {
		e.thresholdKm = km
	}
}

// WithEstimateSpeeds replaces the assumed per-profile speeds (km/h) used
// for geometry-only duration estimates.
func WithEstimateSpeeds(speeds map[Profile]float64) Option {
	return func(e *Engine) {
		e.estimateSpeeds = speeds
	}
}

// WithEstimateSpeed overrides the assumed speed (km/h) for one profile.
func WithEstimateSpeed(profile Profile, speedKmh float64) Option {
	return func(e *Engine) {
		if e.estimateSpeeds == nil {
			e.estimateSpeeds = make(map[Profile]float64)
		}
		e.estimateSpeeds[profile] = speedKmh
	}
}

// WithRateLimit caps provider requests at maxRequests per window.
func WithRateLimit(maxRequests int, window time.Duration) Option {
	return func(e *Engine) {
		e.limiter = NewRateLimiter(maxRequests, window)
	}
}

// WithBatchSize sets how many routed destinations each batch dispatches
// concurrently.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		e.batchSize = n
	}
}

// WithBatchDelay sets the minimum pause between successive batches.
func WithBatchDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.batchDelay = d
	}
}

// WithClock injects the wall clock used for cache expiry, backoff sleeps,
// batch pacing and rate limiting. Tests pass a mock.
func WithClock(clk clock.Clock) Option {
	return func(e *Engine) {
		e.clock = clk
	}
}

// WithLogger sets a structured logger for debug output.
func WithLogger(logger Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a console logger.
func WithSimpleLogger() Option {
	return func(e *Engine) {
		e.logger = NewSimpleLogger()
	}
}

// WithMetrics enables Prometheus metrics collection on the default registry.
func WithMetrics() Option {
	return func(e *Engine) {
		e.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(e *Engine) {
		e.metrics = collector
	}
}

// ValidateConfiguration validates the engine configuration and returns an
// error if invalid.
func (e *Engine) ValidateConfiguration() error {
	var problems []string

	problems = append(problems, e.validateProviderConfig()...)
	problems = append(problems, e.validateRetryConfig()...)
	problems = append(problems, e.validateCacheConfig()...)
	problems = append(problems, e.validatePolicyConfig()...)
	problems = append(problems, e.validateBatchConfig()...)

	if len(problems) > 0 {
		return &ResolveError{
			Type:    ErrorTypeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", problems),
		}
	}

	return nil
}

func (e *Engine) validateProviderConfig() []string {
	var problems []string

	if e.baseURL == "" {
		problems = append(problems, "baseURL must not be empty")
	} else if u, err := url.Parse(e.baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, "baseURL must be an absolute URL")
	}

	return problems
}

func (e *Engine) validateRetryConfig() []string {
	var problems []string

	if e.maxRetries < 0 {
		problems = append(problems, "maxRetries must be non-negative")
	}
	if e.requestTimeout <= 0 {
		problems = append(problems, "requestTimeout must be positive")
	}
	if e.backoffSchedule.Initial <= 0 {
		problems = append(problems, "backoff initial delay must be positive")
	}
	if e.backoffSchedule.Max < e.backoffSchedule.Initial {
		problems = append(problems, "backoff max must be greater than or equal to initial")
	}
	if e.backoffSchedule.Multiplier <= 0 {
		problems = append(problems, "backoff multiplier must be positive")
	}
	if e.backoffSchedule.Jitter < 0 || e.backoffSchedule.Jitter > 1 {
		problems = append(problems, "backoff jitter must be between 0 and 1")
	}

	return problems
}

func (e *Engine) validateCacheConfig() []string {
	var problems []string

	if e.cacheEnabled && e.cacheTTL <= 0 {
		problems = append(problems, "cacheTTL must be positive when cache is enabled")
	}
	if e.cacheEnabled && e.fallbackTTL <= 0 {
		problems = append(problems, "fallbackTTL must be positive when cache is enabled")
	}
	if e.cacheEnabled && e.fallbackTTL > e.cacheTTL {
		problems = append(problems, "fallbackTTL should not exceed cacheTTL")
	}

	return problems
}

func (e *Engine) validatePolicyConfig() []string {
	var problems []string

	if e.thresholdKm < 0 {
		problems = append(problems, "straight-line threshold must be non-negative")
	}
	for profile, speed := range e.estimateSpeeds {
		if !profile.Valid() {
			problems = append(problems, fmt.Sprintf("unknown estimate speed profile %q", profile))
		}
		if speed <= 0 {
			problems = append(problems, fmt.Sprintf("estimate speed for %q must be positive", profile))
		}
	}

	return problems
}

func (e *Engine) validateBatchConfig() []string {
	var problems []string

	if e.batchSize <= 0 {
		problems = append(problems, "batchSize must be positive")
	}
	if e.batchDelay < 0 {
		problems = append(problems, "batchDelay must be non-negative")
	}

	return problems
}
