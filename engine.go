package parkfind

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/varunveeraa/park-find-sub000/internal/backoff"
)

// Tuning defaults for the decision policy.
const (
	// DefaultStraightLineThresholdKm is the distance under which geometry
	// alone is considered good enough and routing is skipped.
	DefaultStraightLineThresholdKm = 0.5
	// DefaultCacheTTL is the lifetime of a genuine routed result.
	DefaultCacheTTL = 24 * time.Hour
	// DefaultFallbackCacheTTL is the shorter lifetime of a cached fallback,
	// so a transient provider outage is retried sooner.
	DefaultFallbackCacheTTL = 10 * time.Minute
	// DefaultRequestsPerMinute matches the public provider's free-tier
	// ceiling.
	DefaultRequestsPerMinute = 40
)

// Engine decides, per query, between a cheap geometric estimate and an
// authoritative remote route, and manages the lifecycle of the remote call:
// caching, coalescing, retry, rate limiting and fallback. A single Engine
// value is safe for concurrent use and owns its cache and coalescer
// exclusively.
type Engine struct {
	client    *RouteClient
	cache     Cache
	store     KeyValueStore
	coalescer *Coalescer
	limiter   *RateLimiter
	metrics   *MetricsCollector
	logger    Logger
	clock     clock.Clock

	baseURL         string
	apiKey          string
	httpClient      *http.Client
	routingEnabled  bool
	cacheEnabled    bool
	cacheTTL        time.Duration
	fallbackTTL     time.Duration
	thresholdKm     float64
	estimateSpeeds  map[Profile]float64
	requestTimeout  time.Duration
	maxRetries      int
	backoffSchedule backoff.Schedule
	batchSize       int
	batchDelay      time.Duration

	validationError error
}

// New constructs an Engine using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Engine {
	e := &Engine{
		coalescer:       NewCoalescer(),
		clock:           clock.New(),
		baseURL:         DefaultBaseURL,
		routingEnabled:  true,
		cacheEnabled:    true,
		cacheTTL:        DefaultCacheTTL,
		fallbackTTL:     DefaultFallbackCacheTTL,
		thresholdKm:     DefaultStraightLineThresholdKm,
		estimateSpeeds:  DefaultEstimateSpeeds(),
		requestTimeout:  DefaultRequestTimeout,
		maxRetries:      DefaultMaxRetries,
		backoffSchedule: backoff.Default(),
		batchSize:       DefaultBatchSize,
		batchDelay:      DefaultBatchDelay,
	}

	for _, option := range options {
		option(e)
	}

	if e.cache == nil && e.cacheEnabled {
		cache := NewInMemoryCache()
		cache.SetClock(e.clock)
		e.cache = cache
	}
	if e.cacheEnabled && e.store != nil {
		e.cache = NewPersistentCache(e.cache, e.store, e.logger)
	}
	if e.limiter == nil {
		limiter := NewRateLimiter(DefaultRequestsPerMinute, time.Minute)
		limiter.SetClock(e.clock)
		e.limiter = limiter
	}
	if e.client == nil {
		httpClient := e.httpClient
		if httpClient == nil {
			httpClient = defaultHTTPClient()
		}
		e.client = &RouteClient{
			httpClient: httpClient,
			baseURL:    e.baseURL,
			apiKey:     e.apiKey,
			timeout:    e.requestTimeout,
			maxRetries: e.maxRetries,
			backoff:    e.backoffSchedule,
			clock:      e.clock,
			logger:     e.logger,
			metrics:    e.metrics,
		}
	}

	if err := e.ValidateConfiguration(); err != nil {
		e.validationError = err
	}

	return e
}

// Routable reports whether routed resolution is possible: routing enabled
// and a provider credential configured. Callers use it to decide whether to
// offer navigation-grade results.
func (e *Engine) Routable() bool {
	return e.routingEnabled && e.apiKey != ""
}

// Resolve answers a single origin→destination query using the default
// options: cache consulted, threshold honored, graceful fallback.
func (e *Engine) Resolve(ctx context.Context, query RouteQuery) (*RouteResult, error) {
	return e.ResolveWithOptions(ctx, query, ResolveOptions{})
}

// ResolveWithOptions answers a single query. The transition rules are
// evaluated in order: routing availability, straight-line threshold, cache,
// coalesced remote resolution, fallback. The only configuration that can
// surface an error (beyond caller context cancellation) is ForceRouting
// combined with DisableFallback.
func (e *Engine) ResolveWithOptions(ctx context.Context, query RouteQuery, opts ResolveOptions) (*RouteResult, error) {
	if query.Profile == "" {
		query.Profile = ProfileDriving
	}

	start := e.clock.Now()
	e.metrics.RecordResolutionStart(query.Profile)
	defer e.metrics.RecordResolutionEnd(query.Profile)

	result, err := e.resolve(ctx, query, opts)
	if result != nil {
		e.metrics.RecordResolution(query.Profile, result.Method, e.clock.Now().Sub(start))
	}
	return result, err
}

func (e *Engine) resolve(ctx context.Context, query RouteQuery, opts ResolveOptions) (*RouteResult, error) {
	speed := e.speedFor(query.Profile)

	if !e.Routable() {
		if opts.ForceRouting && opts.DisableFallback {
			return nil, &ResolveError{
				Type: ErrorTypeConfig, Message: "routing unavailable", Cause: ErrRoutingDisabled,
				QueryKey: query.Key(), Timestamp: e.clock.Now(),
			}
		}
		return geometryResult(query, speed, MethodGeometry), nil
	}

	if !opts.ForceRouting && Distance(query.From, query.To) <= e.thresholdKm {
		return geometryResult(query, speed, MethodGeometry), nil
	}

	key := query.Key()

	if e.cacheEnabled && !opts.ForceRouting {
		if entry, found := e.cache.Get(key); found {
			e.metrics.RecordCacheHit(query.Profile)
			return entry.Result, nil
		}
		e.metrics.RecordCacheMiss(query.Profile)
	}

	result, err, shared := e.coalescer.Do(ctx, key, func() (*RouteResult, error) {
		return e.resolveRemote(ctx, query, speed)
	})
	if shared {
		e.metrics.RecordCoalesced(query.Profile)
	}

	if err != nil {
		if opts.ForceRouting && opts.DisableFallback {
			return nil, err
		}
		if result == nil {
			// Waiter abandoned by its own context, or a shared failure
			// with fallback disabled on the owner's side.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			result = geometryResult(query, speed, MethodRoutedFallback)
		}
		return result, nil
	}

	return result, nil
}

// resolveRemote is the coalesced path: rate limit check, remote call, cache
// write. On provider exhaustion it caches and returns a geometry fallback
// alongside the causing error so each caller can apply its own policy.
func (e *Engine) resolveRemote(ctx context.Context, query RouteQuery, speed float64) (*RouteResult, error) {
	key := query.Key()

	if e.limiter != nil {
		allowed := e.limiter.Allow()
		e.metrics.RecordRateLimiterTokens("provider", e.limiter.Tokens())
		if !allowed {
			e.metrics.RecordError(ErrorTypeRateLimit, query.Profile)
			if e.logger != nil {
				e.logger.Warn("rate limit exceeded", "key", key)
			}
			return e.fallback(query, speed, "rate_limit"), &ResolveError{
				Type: ErrorTypeRateLimit, Message: "rate limit exceeded", Cause: ErrRateLimited,
				QueryKey: key, Timestamp: e.clock.Now(),
			}
		}
	}

	result, err := e.client.Resolve(ctx, query)
	if err == nil {
		e.cacheResult(key, result, e.cacheTTL)
		return result, nil
	}

	reason := "network"
	var resolveErr *ResolveError
	if errors.As(err, &resolveErr) {
		e.metrics.RecordError(resolveErr.Type, query.Profile)
		if resolveErr.Type == ErrorTypeProvider {
			reason = "provider"
		}
	}
	if e.logger != nil {
		e.logger.Warn("routed resolution failed, falling back to geometry",
			"key", key, "error", err)
	}

	return e.fallback(query, speed, reason), err
}

// fallback builds a geometry estimate marked as a routed fallback and caches
// it with the shorter fallback TTL.
func (e *Engine) fallback(query RouteQuery, speed float64, reason string) *RouteResult {
	e.metrics.RecordFallback(query.Profile, reason)
	result := geometryResult(query, speed, MethodRoutedFallback)
	e.cacheResult(query.Key(), result, e.fallbackTTL)
	return result
}

func (e *Engine) cacheResult(key string, result *RouteResult, ttl time.Duration) {
	if !e.cacheEnabled || e.cache == nil {
		return
	}
	now := e.clock.Now()
	e.cache.Set(key, &CacheEntry{
		Result:    result,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, ttl)
	e.metrics.RecordCacheSize("routes", e.cache.Stats().Count)
}

func (e *Engine) speedFor(p Profile) float64 {
	if speed, ok := e.estimateSpeeds[p]; ok && speed > 0 {
		return speed
	}
	return DefaultEstimateSpeeds()[ProfileDriving]
}

// CacheStats reports route cache occupancy for diagnostics surfaces.
func (e *Engine) CacheStats() CacheStats {
	if e.cache == nil {
		return CacheStats{}
	}
	return e.cache.Stats()
}

// ClearCache drops every cached route, including persisted ones when the
// cache is backed by a store.
func (e *Engine) ClearCache() {
	if e.cache != nil {
		e.cache.Clear()
		e.metrics.RecordCacheSize("routes", 0)
	}
}

// IsValid reports whether configuration validation passed at construction.
func (e *Engine) IsValid() bool {
	return e.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (e *Engine) ValidationError() error {
	return e.validationError
}
