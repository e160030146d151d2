package parkfind

import (
	"math"
	"time"
)

// earthRadiusKm is the mean Earth radius used by the Haversine formula.
const earthRadiusKm = 6371.0

// Distance returns the great-circle distance between a and b in kilometers
// using the Haversine formula. Pure and deterministic; callers are
// responsible for validating coordinate ranges.
func Distance(a, b Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// EstimateDuration converts a distance into an assumed travel time at the
// given speed. Returns zero for non-positive speeds.
func EstimateDuration(distanceKm, speedKmh float64) time.Duration {
	if speedKmh <= 0 {
		return 0
	}
	return time.Duration(distanceKm / speedKmh * float64(time.Hour))
}

// DefaultEstimateSpeeds returns the assumed speeds, in km/h, used for
// geometry-only duration estimates per travel profile.
func DefaultEstimateSpeeds() map[Profile]float64 {
	return map[Profile]float64{
		ProfileDriving: 40,
		ProfileCycling: 15,
		ProfileWalking: 5,
	}
}

// geometryResult builds an estimate-only RouteResult for the query at the
// given assumed speed.
func geometryResult(q RouteQuery, speedKmh float64, method ResolveMethod) *RouteResult {
	km := Distance(q.From, q.To)
	return &RouteResult{
		DistanceKm:  km,
		DurationMin: EstimateDuration(km, speedKmh).Minutes(),
		Method:      method,
		IsEstimate:  true,
	}
}
