package parkfind

import (
	"errors"
	"fmt"
	"time"
)

// Error type constants used in ResolveError.Type.
const (
	// ErrorTypeConfig marks a missing/invalid credential or a malformed
	// base URL, detected at configuration time.
	ErrorTypeConfig = "Config"
	// ErrorTypeNetwork marks a timeout or connection failure on a remote
	// call attempt.
	ErrorTypeNetwork = "Network"
	// ErrorTypeProvider marks a non-success response or malformed payload
	// from the routing provider.
	ErrorTypeProvider = "Provider"
	// ErrorTypeCache marks a failure reading or writing the optional
	// persistence collaborator. Never fatal.
	ErrorTypeCache = "Cache"
	// ErrorTypeRateLimit marks a dispatch denied by the global rate limiter.
	ErrorTypeRateLimit = "RateLimit"
	// ErrorTypeValidation marks invalid engine configuration reported by
	// ValidateConfiguration.
	ErrorTypeValidation = "Validation"
)

// Sentinel errors for common failure scenarios
var (
	// ErrRoutingDisabled is returned by forced-routing calls when routing
	// is globally disabled or no provider credential is configured.
	ErrRoutingDisabled = errors.New("parkfind: routing disabled")

	// ErrRateLimited is returned when a request is denied due to rate limiting
	ErrRateLimited = errors.New("parkfind: rate limited")

	// ErrNoRoute is returned when the provider answered without any route
	ErrNoRoute = errors.New("parkfind: provider returned no routes")
)

// ResolveError carries diagnostic context for a failed resolution attempt.
type ResolveError struct {
	Type       string
	Message    string
	Cause      error
	QueryKey   string
	StatusCode int
	Attempt    int
	MaxRetries int
	Timestamp  time.Time
	Duration   time.Duration
}

// Error implements error interface.
func (e *ResolveError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.QueryKey != "" {
		msg = fmt.Sprintf("[%s] %s", e.QueryKey, msg)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxRetries)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ResolveError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ResolveError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ResolveError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// IsTransient determines if an error represents a transient failure that
// might succeed on retry. Returns true for network errors, timeouts, 5xx
// provider responses and rate limiting (429). Returns false for other 4xx
// responses and configuration errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrRateLimited) {
		return true
	}

	var resolveErr *ResolveError
	if errors.As(err, &resolveErr) {
		switch resolveErr.Type {
		case ErrorTypeNetwork, ErrorTypeRateLimit:
			return true
		case ErrorTypeProvider:
			// Provider failures retry like network failures, except 4xx
			// responses (other than 429) where a retry cannot help.
			if resolveErr.StatusCode >= 400 && resolveErr.StatusCode < 500 && resolveErr.StatusCode != 429 {
				return false
			}
			return true
		default:
			return false
		}
	}

	return false
}
