package parkfind

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveErrorMessage(t *testing.T) {
	err := &ResolveError{
		Type:     ErrorTypeNetwork,
		Message:  "provider request failed",
		Cause:    errors.New("connection refused"),
		QueryKey: "driving:-37.813600,144.963100:-37.820000,144.970000",
	}

	msg := err.Error()
	for _, want := range []string{"Network", "provider request failed", "connection refused", "driving:"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestResolveErrorMessageIncludesAttempt(t *testing.T) {
	err := &ResolveError{
		Type:       ErrorTypeNetwork,
		Message:    "resolution abandoned",
		Attempt:    2,
		MaxRetries: 3,
	}

	if !strings.Contains(err.Error(), "attempt 2/3") {
		t.Errorf("Error() = %q, want attempt counter", err.Error())
	}
}

func TestResolveErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &ResolveError{Type: ErrorTypeProvider, Message: "status 500", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause through Unwrap")
	}
}

func TestResolveErrorIsMatchesType(t *testing.T) {
	err := &ResolveError{Type: ErrorTypeRateLimit, Message: "rate limit exceeded"}

	if !errors.Is(err, &ResolveError{Type: ErrorTypeRateLimit}) {
		t.Error("errors with the same Type should match")
	}
	if errors.Is(err, &ResolveError{Type: ErrorTypeNetwork}) {
		t.Error("errors with different Types should not match")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network error", &ResolveError{Type: ErrorTypeNetwork}, true},
		{"rate limit error", &ResolveError{Type: ErrorTypeRateLimit}, true},
		{"rate limited sentinel", ErrRateLimited, true},
		{"provider 500", &ResolveError{Type: ErrorTypeProvider, StatusCode: 500}, true},
		{"provider 503", &ResolveError{Type: ErrorTypeProvider, StatusCode: 503}, true},
		{"provider 429", &ResolveError{Type: ErrorTypeProvider, StatusCode: 429}, true},
		{"provider 404", &ResolveError{Type: ErrorTypeProvider, StatusCode: 404}, false},
		{"provider 401", &ResolveError{Type: ErrorTypeProvider, StatusCode: 401}, false},
		{"malformed payload", &ResolveError{Type: ErrorTypeProvider, StatusCode: 200}, true},
		{"no status code", &ResolveError{Type: ErrorTypeProvider}, true},
		{"config error", &ResolveError{Type: ErrorTypeConfig}, false},
		{"validation error", &ResolveError{Type: ErrorTypeValidation}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNilResolveError(t *testing.T) {
	var err *ResolveError
	if err.Error() != "<nil>" {
		t.Errorf("nil Error() = %q", err.Error())
	}
	if err.Unwrap() != nil {
		t.Error("nil Unwrap() should return nil")
	}
}
