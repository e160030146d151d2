package parkfind

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/varunveeraa/park-find-sub000/internal/backoff"
)

// DefaultBaseURL is the directions endpoint of the public OpenRouteService
// deployment.
const DefaultBaseURL = "https://api.openrouteservice.org/v2/directions"

// DefaultRequestTimeout bounds each individual provider attempt.
const DefaultRequestTimeout = 8 * time.Second

// DefaultMaxRetries is the number of additional attempts beyond the first.
const DefaultMaxRetries = 2

// defaultHTTPClient returns the transport used when the caller does not
// supply one. Per-attempt deadlines come from context, not client timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{}
}

// RouteClient performs the remote routing call with a per-attempt timeout
// and bounded retry. It owns no state beyond transient network handles; a
// failed attempt mutates nothing.
type RouteClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	backoff    backoff.Schedule
	clock      clock.Clock
	logger     Logger
	metrics    *MetricsCollector
}

// NewRouteClient creates a client for the provider at baseURL authorized by
// apiKey. Zero-value tuning fields fall back to package defaults.
func NewRouteClient(baseURL, apiKey string) *RouteClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &RouteClient{
		httpClient: defaultHTTPClient(),
		baseURL:    baseURL,
		apiKey:     apiKey,
		timeout:    DefaultRequestTimeout,
		maxRetries: DefaultMaxRetries,
		backoff:    backoff.Default(),
		clock:      clock.New(),
	}
}

// providerProfile maps a travel profile to the provider's endpoint segment.
func providerProfile(p Profile) string {
	switch p {
	case ProfileWalking:
		return "foot-walking"
	case ProfileCycling:
		return "cycling-regular"
	default:
		return "driving-car"
	}
}

// directionsRequest is the provider wire format for a route lookup.
type directionsRequest struct {
	Coordinates  [][2]float64 `json:"coordinates"`
	Format       string       `json:"format"`
	Instructions bool         `json:"instructions"`
	Geometry     bool         `json:"geometry"`
}

// directionsResponse mirrors the subset of the provider payload the engine
// consumes. Distances arrive in meters, durations in seconds, coordinates
// in [lon, lat] order.
type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Segments []struct {
			Steps []struct {
				Instruction string `json:"instruction"`
			} `json:"steps"`
		} `json:"segments"`
	} `json:"routes"`
}

// Resolve obtains an authoritative route for the query, retrying transient
// failures with exponential backoff. Each attempt is independently bounded
// by the per-attempt timeout.
func (c *RouteClient) Resolve(ctx context.Context, query RouteQuery) (*RouteResult, error) {
	start := c.clock.Now()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.RecordRetry(query.Profile, attempt)
			if c.logger != nil {
				c.logger.Info("retrying provider request",
					"key", query.Key(), "attempt", attempt, "maxRetries", c.maxRetries)
			}

			delay := c.backoff.Delay(attempt - 1)
			select {
			case <-c.clock.After(delay):
			case <-ctx.Done():
				return nil, c.wrapAttemptError(query, ctx.Err(), attempt, start)
			}
		}

		result, err := c.attempt(ctx, query)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if c.logger != nil {
			c.logger.Warn("provider attempt failed",
				"key", query.Key(), "attempt", attempt, "error", err)
		}
		if !IsTransient(err) || ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

// attempt performs one bounded provider call.
func (c *RouteClient) attempt(ctx context.Context, query RouteQuery) (*RouteResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(directionsRequest{
		Coordinates: [][2]float64{
			{query.From.Longitude, query.From.Latitude},
			{query.To.Longitude, query.To.Latitude},
		},
		Format:       "json",
		Instructions: true,
		Geometry:     true,
	})
	if err != nil {
		return nil, &ResolveError{
			Type: ErrorTypeProvider, Message: "encode request", Cause: err,
			QueryKey: query.Key(), Timestamp: c.clock.Now(),
		}
	}

	url := c.baseURL + "/" + providerProfile(query.Profile)
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ResolveError{
			Type: ErrorTypeProvider, Message: "build request", Cause: err,
			QueryKey: query.Key(), Timestamp: c.clock.Now(),
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordProviderRequest(query.Profile, 0)
		return nil, &ResolveError{
			Type: ErrorTypeNetwork, Message: "provider request failed", Cause: err,
			QueryKey: query.Key(), Timestamp: c.clock.Now(),
		}
	}
	defer resp.Body.Close()

	c.metrics.RecordProviderRequest(query.Profile, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a bounded slice of the body for the error message.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &ResolveError{
			Type:       ErrorTypeProvider,
			Message:    fmt.Sprintf("provider status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)),
			QueryKey:   query.Key(),
			StatusCode: resp.StatusCode,
			Timestamp:  c.clock.Now(),
		}
	}

	var decoded directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &ResolveError{
			Type: ErrorTypeProvider, Message: "decode response", Cause: err,
			QueryKey: query.Key(), StatusCode: resp.StatusCode, Timestamp: c.clock.Now(),
		}
	}
	if len(decoded.Routes) == 0 {
		return nil, &ResolveError{
			Type: ErrorTypeProvider, Message: "no routes in response", Cause: ErrNoRoute,
			QueryKey: query.Key(), StatusCode: resp.StatusCode, Timestamp: c.clock.Now(),
		}
	}

	route := decoded.Routes[0]

	geometry := make([]Coordinate, 0, len(route.Geometry.Coordinates))
	for _, pair := range route.Geometry.Coordinates {
		geometry = append(geometry, Coordinate{Latitude: pair[1], Longitude: pair[0]})
	}

	var instructions []string
	for _, segment := range route.Segments {
		for _, step := range segment.Steps {
			if step.Instruction != "" {
				instructions = append(instructions, step.Instruction)
			}
		}
	}

	return &RouteResult{
		DistanceKm:   route.Summary.Distance / 1000,
		DurationMin:  route.Summary.Duration / 60,
		Geometry:     geometry,
		Instructions: instructions,
		Method:       MethodRouted,
		IsEstimate:   false,
	}, nil
}

func (c *RouteClient) wrapAttemptError(query RouteQuery, cause error, attempt int, start time.Time) error {
	return &ResolveError{
		Type:       ErrorTypeNetwork,
		Message:    "resolution abandoned",
		Cause:      cause,
		QueryKey:   query.Key(),
		Attempt:    attempt,
		MaxRetries: c.maxRetries,
		Timestamp:  c.clock.Now(),
		Duration:   c.clock.Now().Sub(start),
	}
}
