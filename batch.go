package parkfind

import (
	"context"
	"sync"
	"time"
)

// Batch scheduling defaults.
const (
	// DefaultBatchSize is how many routed destinations are dispatched
	// concurrently per group.
	DefaultBatchSize = 4
	// DefaultBatchDelay is the minimum pause between successive groups,
	// keeping the per-minute provider budget intact.
	DefaultBatchDelay = time.Second
)

// ResolveMany resolves routes from one origin to many destinations.
// Destinations whose straight-line distance falls under the threshold are
// answered with geometry immediately; the rest are grouped into fixed-size
// batches dispatched strictly in order, each batch's items resolved
// concurrently, with a minimum delay between successive batches. A failure
// for one destination degrades to its own geometry estimate and never
// affects siblings. Results are keyed by destination ID; within a batch,
// completion order is unspecified.
func (e *Engine) ResolveMany(ctx context.Context, origin Coordinate, destinations []Destination, opts BatchOptions) map[string]*RouteResult {
	profile := opts.Profile
	if profile == "" {
		profile = ProfileDriving
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = e.batchSize
	}
	delay := opts.BatchDelay
	if delay <= 0 {
		delay = e.batchDelay
	}

	results := make(map[string]*RouteResult, len(destinations))
	var mu sync.Mutex

	// Partition: near destinations are pure geometry, the rest need routing.
	var routed []Destination
	for _, dest := range destinations {
		query := RouteQuery{From: origin, To: dest.Coord, Profile: profile}
		if !opts.ForceRouting && (!e.Routable() || Distance(origin, dest.Coord) <= e.thresholdKm) {
			results[dest.ID] = geometryResult(query, e.speedFor(profile), MethodGeometry)
			continue
		}
		routed = append(routed, dest)
	}

	resolveOpts := ResolveOptions{ForceRouting: opts.ForceRouting}

	for batchStart := 0; batchStart < len(routed); batchStart += batchSize {
		if batchStart > 0 {
			select {
			case <-e.clock.After(delay):
			case <-ctx.Done():
			}
		}

		end := batchStart + batchSize
		if end > len(routed) {
			end = len(routed)
		}
		batch := routed[batchStart:end]
		e.metrics.RecordBatch(len(batch))
		if e.logger != nil {
			e.logger.Debug("dispatching batch",
				"size", len(batch), "remaining", len(routed)-end)
		}

		var wg sync.WaitGroup
		for _, dest := range batch {
			wg.Add(1)
			go func(dest Destination) {
				defer wg.Done()

				query := RouteQuery{From: origin, To: dest.Coord, Profile: profile}
				result, err := e.ResolveWithOptions(ctx, query, resolveOpts)
				if err != nil || result == nil {
					// Isolated per-item failure: this destination gets its
					// own estimate, siblings are untouched.
					result = geometryResult(query, e.speedFor(profile), MethodRoutedFallback)
					e.metrics.RecordFallback(profile, "batch_item")
				}

				mu.Lock()
				results[dest.ID] = result
				mu.Unlock()
			}(dest)
		}
		wg.Wait()
	}

	return results
}
