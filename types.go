package parkfind

import (
	"fmt"
	"time"
)

// Coordinate is a WGS84 latitude/longitude pair.
// Valid ranges: latitude [-90, 90], longitude [-180, 180].
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Valid reports whether the coordinate lies inside the WGS84 ranges.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Profile is the mode of travel. It selects the provider endpoint and the
// assumed speed used for geometry-only duration estimates.
type Profile string

const (
	ProfileDriving Profile = "driving"
	ProfileWalking Profile = "walking"
	ProfileCycling Profile = "cycling"
)

// Valid reports whether the profile is one of the supported modes.
func (p Profile) Valid() bool {
	switch p {
	case ProfileDriving, ProfileWalking, ProfileCycling:
		return true
	default:
		return false
	}
}

// RouteQuery identifies a single origin→destination resolution request.
// It is an immutable value; cache and coalescing keys are derived from it.
type RouteQuery struct {
	From    Coordinate
	To      Coordinate
	Profile Profile
}

// Key derives the cache/coalescing key for the query. Coordinates are
// quantized to 6 decimal places (~11 cm) so near-identical queries share an
// entry without exploding the key space.
func (q RouteQuery) Key() string {
	return fmt.Sprintf("%s:%.6f,%.6f:%.6f,%.6f",
		q.Profile, q.From.Latitude, q.From.Longitude, q.To.Latitude, q.To.Longitude)
}

// ResolveMethod describes how a RouteResult was produced.
type ResolveMethod string

const (
	// MethodGeometry marks a pure great-circle estimate; routing was never
	// attempted for the query.
	MethodGeometry ResolveMethod = "geometry"
	// MethodRouted marks an authoritative result from the routing provider.
	MethodRouted ResolveMethod = "routed"
	// MethodRoutedFallback marks a geometry estimate substituted after the
	// provider could not be reached or answered with an error.
	MethodRoutedFallback ResolveMethod = "routed-fallback"
)

// RouteResult is the outcome of a resolution. Invariants: Method ==
// MethodGeometry or MethodRoutedFallback implies IsEstimate == true;
// Method == MethodRouted implies IsEstimate == false.
type RouteResult struct {
	DistanceKm   float64       `json:"distanceKm"`
	DurationMin  float64       `json:"durationMin"`
	Geometry     []Coordinate  `json:"geometry,omitempty"`
	Instructions []string      `json:"instructions,omitempty"`
	Method       ResolveMethod `json:"method"`
	IsEstimate   bool          `json:"isEstimate"`
}

// CacheEntry wraps a cached result with its lifetime. An entry is never
// served once the clock passes ExpiresAt.
type CacheEntry struct {
	Result    *RouteResult `json:"result"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// CacheStats is a point-in-time snapshot of cache occupancy.
type CacheStats struct {
	Count            int
	ApproximateBytes int
}

// Cache stores resolved routes keyed by RouteQuery.Key.
type Cache interface {
	Get(key string) (*CacheEntry, bool)
	Set(key string, entry *CacheEntry, ttl time.Duration)
	Delete(key string)
	Clear()
	Stats() CacheStats
}

// KeyValueStore is the optional persistence collaborator used to carry cache
// entries across process restarts. Implementations may fail freely; the
// engine logs and proceeds with a cold cache.
type KeyValueStore interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// ResolveOptions tune a single resolution.
type ResolveOptions struct {
	// ForceRouting skips the straight-line threshold rule and the cache
	// read (the cache is still written on success) so navigation-style
	// callers always observe a fresh route.
	ForceRouting bool
	// DisableFallback surfaces the provider error instead of degrading to
	// a geometry estimate. Only honored together with ForceRouting; in
	// every other configuration the engine degrades gracefully.
	DisableFallback bool
}

// Destination pairs a caller-chosen identifier with a coordinate for batch
// resolution. Results map back to the identifier.
type Destination struct {
	ID    string
	Coord Coordinate
}

// BatchOptions tune a ResolveMany call. Zero fields fall back to the
// engine-level configuration.
type BatchOptions struct {
	Profile      Profile
	BatchSize    int
	BatchDelay   time.Duration
	ForceRouting bool
}

// Option configures an Engine at construction time.
type Option func(*Engine)
