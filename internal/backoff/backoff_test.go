package backoff

import (
	"testing"
	"time"
)

func TestScheduleDelay(t *testing.T) {
	tests := []struct {
		name     string
		attempt  int
		schedule Schedule
		expected time.Duration
	}{
		{
			name:    "attempt 0",
			attempt: 0,
			schedule: Schedule{Initial: time.Second, Max: 30 * time.Second,
				Multiplier: 2.0, Jitter: 0.0}, // no jitter for predictable testing
			expected: time.Second,
		},
		{
			name:    "attempt 1 doubles",
			attempt: 1,
			schedule: Schedule{Initial: time.Second, Max: 30 * time.Second,
				Multiplier: 2.0, Jitter: 0.0},
			expected: 2 * time.Second,
		},
		{
			name:    "attempt 2 doubles again",
			attempt: 2,
			schedule: Schedule{Initial: time.Second, Max: 30 * time.Second,
				Multiplier: 2.0, Jitter: 0.0},
			expected: 4 * time.Second,
		},
		{
			name:    "capped at max",
			attempt: 10,
			schedule: Schedule{Initial: time.Second, Max: 5 * time.Second,
				Multiplier: 2.0, Jitter: 0.0},
			expected: 5 * time.Second,
		},
		{
			name:    "negative attempt treated as first",
			attempt: -3,
			schedule: Schedule{Initial: time.Second, Max: 30 * time.Second,
				Multiplier: 2.0, Jitter: 0.0},
			expected: time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.schedule.Delay(tt.attempt)
			if got != tt.expected {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestScheduleDelayJitterBounds(t *testing.T) {
	s := Schedule{Initial: time.Second, Max: time.Minute, Multiplier: 2.0, Jitter: 0.5}

	for i := 0; i < 100; i++ {
		d := s.Delay(1)
		if d < 2*time.Second || d > 3*time.Second {
			t.Fatalf("Delay(1) = %v, want within [2s, 3s]", d)
		}
	}
}

func TestScheduleDelayNeverExceedsMax(t *testing.T) {
	s := Schedule{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2.0, Jitter: 1.0}

	for attempt := 0; attempt < 40; attempt++ {
		if d := s.Delay(attempt); d > s.Max {
			t.Fatalf("Delay(%d) = %v exceeds max %v", attempt, d, s.Max)
		}
	}
}

func TestDefault(t *testing.T) {
	s := Default()
	if s.Initial != time.Second {
		t.Errorf("Default().Initial = %v, want 1s", s.Initial)
	}
	if s.Multiplier != 2.0 {
		t.Errorf("Default().Multiplier = %v, want 2.0", s.Multiplier)
	}
	if s.Max < s.Initial {
		t.Errorf("Default().Max = %v, want >= Initial", s.Max)
	}
}

func TestClampJitter(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.5, 0.0},
		{0.0, 0.0},
		{0.5, 0.5},
		{1.0, 1.0},
		{1.5, 1.0},
	}

	for _, tt := range tests {
		if got := clampJitter(tt.input); got != tt.expected {
			t.Errorf("clampJitter(%f) = %f, want %f", tt.input, got, tt.expected)
		}
	}
}

func BenchmarkScheduleDelay(b *testing.B) {
	s := Default()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Delay(i % 10)
	}
}
