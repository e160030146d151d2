package parkfind

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the flat configuration surface consumed by the engine. It is
// produced once by an external loader (flags, env, file — the engine never
// reads ambient state itself) and handed to NewFromConfig.
type Config struct {
	// APIKey is the provider credential. Empty means geometry-only.
	APIKey string
	// BaseURL overrides the provider directions endpoint.
	BaseURL string
	// EnableRouting toggles remote routing globally.
	EnableRouting bool
	// CacheEnabled toggles route caching.
	CacheEnabled bool
	// CacheTTLHours is the lifetime of routed results, in hours.
	CacheTTLHours float64
	// FallbackTTLMinutes is the lifetime of cached fallbacks, in minutes.
	FallbackTTLMinutes float64
	// StraightLineThresholdKm is the geometry-only distance cutoff.
	StraightLineThresholdKm float64
	// MaxRetries is the number of additional provider attempts.
	MaxRetries int
	// RequestTimeoutMs bounds each provider attempt, in milliseconds.
	RequestTimeoutMs int
	// BatchSize is the concurrent dispatch group size for ResolveMany.
	BatchSize int
	// BatchDelayMs is the minimum pause between batches, in milliseconds.
	BatchDelayMs int
	// RequestsPerMinute caps provider calls across all callers.
	RequestsPerMinute int
	// EstimateSpeedsKmh optionally overrides assumed speeds per profile.
	EstimateSpeedsKmh map[Profile]float64
}

// DefaultConfig returns the configuration the engine would assume with no
// loader at all.
func DefaultConfig() Config {
	return Config{
		BaseURL:                 DefaultBaseURL,
		EnableRouting:           true,
		CacheEnabled:            true,
		CacheTTLHours:           24,
		FallbackTTLMinutes:      10,
		StraightLineThresholdKm: DefaultStraightLineThresholdKm,
		MaxRetries:              DefaultMaxRetries,
		RequestTimeoutMs:        int(DefaultRequestTimeout / time.Millisecond),
		BatchSize:               DefaultBatchSize,
		BatchDelayMs:            int(DefaultBatchDelay / time.Millisecond),
		RequestsPerMinute:       DefaultRequestsPerMinute,
	}
}

// Validate reports configuration problems that must fail fast at startup:
// a malformed base URL, or routing enabled with values the engine cannot
// honor. A missing API key is not an error (it just disables routing).
func (c Config) Validate() error {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ResolveError{
				Type:    ErrorTypeConfig,
				Message: fmt.Sprintf("malformed base URL %q", c.BaseURL),
				Cause:   err,
			}
		}
	}
	if c.MaxRetries < 0 {
		return &ResolveError{Type: ErrorTypeConfig, Message: "maxRetries must be non-negative"}
	}
	if c.RequestTimeoutMs < 0 {
		return &ResolveError{Type: ErrorTypeConfig, Message: "requestTimeoutMs must be non-negative"}
	}
	if c.CacheEnabled && c.CacheTTLHours <= 0 {
		return &ResolveError{Type: ErrorTypeConfig, Message: "cacheTtlHours must be positive when cache is enabled"}
	}
	if c.StraightLineThresholdKm < 0 {
		return &ResolveError{Type: ErrorTypeConfig, Message: "straightLineThresholdKm must be non-negative"}
	}
	return nil
}

// options expands the config into engine options.
func (c Config) options() []Option {
	opts := []Option{
		WithAPIKey(c.APIKey),
		WithStraightLineThreshold(c.StraightLineThresholdKm),
		WithMaxRetries(c.MaxRetries),
	}

	if c.BaseURL != "" {
		opts = append(opts, WithBaseURL(c.BaseURL))
	}
	if !c.EnableRouting {
		opts = append(opts, WithRoutingDisabled())
	}
	if c.CacheEnabled {
		opts = append(opts, WithCache(time.Duration(c.CacheTTLHours*float64(time.Hour))))
		if c.FallbackTTLMinutes > 0 {
			opts = append(opts, WithFallbackTTL(time.Duration(c.FallbackTTLMinutes*float64(time.Minute))))
		}
	} else {
		opts = append(opts, WithCacheDisabled())
	}
	if c.RequestTimeoutMs > 0 {
		opts = append(opts, WithRequestTimeout(time.Duration(c.RequestTimeoutMs)*time.Millisecond))
	}
	if c.BatchSize > 0 {
		opts = append(opts, WithBatchSize(c.BatchSize))
	}
	if c.BatchDelayMs > 0 {
		opts = append(opts, WithBatchDelay(time.Duration(c.BatchDelayMs)*time.Millisecond))
	}
	if c.RequestsPerMinute > 0 {
		opts = append(opts, WithRateLimit(c.RequestsPerMinute, time.Minute))
	}
	if len(c.EstimateSpeedsKmh) > 0 {
		opts = append(opts, WithEstimateSpeeds(c.EstimateSpeedsKmh))
	}

	return opts
}

// NewFromConfig validates cfg and constructs an engine from it. Extra
// options are applied after the config and may override it (loggers,
// metrics, clocks, stores).
func NewFromConfig(cfg Config, extra ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	engine := New(append(cfg.options(), extra...)...)
	if err := engine.ValidationError(); err != nil {
		return nil, err
	}
	return engine, nil
}
