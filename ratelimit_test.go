package parkfind

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestRateLimiterConsumesTokens(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	rl.SetClock(clock.NewMock())

	for i := 0; i < 5; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow() {
		t.Error("request beyond the bucket capacity should be denied")
	}
	if got := rl.Tokens(); got != 0 {
		t.Errorf("Tokens = %d, want 0", got)
	}
}

func TestRateLimiterRefill(t *testing.T) {
	mock := clock.NewMock()
	rl := NewRateLimiter(4, time.Minute)
	rl.SetClock(mock)

	for i := 0; i < 4; i++ {
		rl.Allow()
	}
	if rl.Allow() {
		t.Fatal("bucket should be empty")
	}

	// One token regenerates per window/maxTokens.
	mock.Add(15 * time.Second)
	if !rl.Allow() {
		t.Error("one token should have regenerated after 15s")
	}
	if rl.Allow() {
		t.Error("only one token should have regenerated")
	}
}

func TestRateLimiterRefillCapsAtMax(t *testing.T) {
	mock := clock.NewMock()
	rl := NewRateLimiter(3, time.Minute)
	rl.SetClock(mock)

	mock.Add(time.Hour)
	if got := rl.Tokens(); got != 3 {
		t.Errorf("Tokens = %d after long idle, want 3", got)
	}
}

func TestRateLimiterMinimumCapacity(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	rl.SetClock(clock.NewMock())

	if !rl.Allow() {
		t.Error("limiter should hold at least one token")
	}
	if rl.Allow() {
		t.Error("second request should be denied")
	}
}

func TestRateLimiterConcurrentConsumption(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute)
	rl.SetClock(clock.NewMock())

	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow() {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&allowed); got != 10 {
		t.Errorf("%d requests allowed, want exactly 10", got)
	}
}

func BenchmarkRateLimiterAllow(b *testing.B) {
	rl := NewRateLimiter(1000000, time.Second)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			rl.Allow()
		}
	})
}
