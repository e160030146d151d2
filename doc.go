// Package parkfind provides a hybrid distance/route resolution engine with
// composable reliability primitives:
//
//   - Geometry-only resolution (Haversine great-circle estimates)
//   - Authoritative routing through a remote provider with bounded retries
//     and exponential backoff + jitter
//   - In-memory route caching with TTL expiry, a hard entry cap and optional
//     write-through persistence to a key-value store
//   - Request coalescing (merges concurrent identical in-flight queries)
//   - Batch fan-out under a global token-bucket rate limit
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area: functional options configure everything
//   - Graceful degradation: a distance and duration are always returned,
//     with an IsEstimate flag communicating confidence
//   - Safe concurrent use of a single *Engine instance
//   - Extensibility via pluggable cache, store, clock, logger and metrics
//
// Typical usage:
//
//	engine := parkfind.New(
//	    parkfind.WithAPIKey(key),
//	    parkfind.WithCache(24*time.Hour),
//	    parkfind.WithMaxRetries(2),
//	    parkfind.WithRateLimit(40, time.Minute),
//	)
//	result, err := engine.Resolve(ctx, parkfind.RouteQuery{
//	    From:    parkfind.Coordinate{Latitude: -37.8136, Longitude: 144.9631},
//	    To:      parkfind.Coordinate{Latitude: -37.8200, Longitude: 144.9700},
//	    Profile: parkfind.ProfileDriving,
//	})
//
// Without an API key the engine never touches the network and every result
// is a geometry estimate. The library avoids opinionated logging: provide a
// Logger (e.g. via WithSimpleLogger) for insight without noise.
package parkfind
