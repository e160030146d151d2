package parkfind

import (
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// RateLimiter is a lock-free token bucket shared by every concurrent caller.
// It enforces the provider's requests-per-minute ceiling: a bucket created
// with NewRateLimiter(40, time.Minute) starts with 40 tokens and regains one
// every minute/40.
type RateLimiter struct {
	maxTokens      int64
	tokens         int64
	refillInterval time.Duration
	lastRefill     int64
	clock          clock.Clock
}

// NewRateLimiter creates a bucket of maxTokens replenished evenly across the
// window.
func NewRateLimiter(maxTokens int, window time.Duration) *RateLimiter {
	if maxTokens < 1 {
		maxTokens = 1
	}
	rl := &RateLimiter{
		maxTokens:      int64(maxTokens),
		tokens:         int64(maxTokens),
		refillInterval: window / time.Duration(maxTokens),
		clock:          clock.New(),
	}
	rl.lastRefill = rl.clock.Now().UnixNano()
	return rl
}

// SetClock replaces the wall clock. Intended for tests; call before use.
func (rl *RateLimiter) SetClock(clk clock.Clock) {
	rl.clock = clk
	atomic.StoreInt64(&rl.lastRefill, clk.Now().UnixNano())
}

// Allow consumes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.refillTokens()
	return rl.consumeToken()
}

// Tokens reports the currently available token count.
func (rl *RateLimiter) Tokens() int {
	rl.refillTokens()
	return int(atomic.LoadInt64(&rl.tokens))
}

// refillTokens credits tokens for the time elapsed since the last refill.
func (rl *RateLimiter) refillTokens() {
	if rl.refillInterval <= 0 {
		return
	}
	now := rl.clock.Now().UnixNano()

	for {
		currentTokens := atomic.LoadInt64(&rl.tokens)
		lastRefill := atomic.LoadInt64(&rl.lastRefill)

		elapsed := now - lastRefill
		tokensToAdd := elapsed / int64(rl.refillInterval)
		if tokensToAdd == 0 {
			return
		}

		newTokens := currentTokens + tokensToAdd
		if newTokens > rl.maxTokens {
			newTokens = rl.maxTokens
		}
		newLastRefill := lastRefill + tokensToAdd*int64(rl.refillInterval)

		if !atomic.CompareAndSwapInt64(&rl.lastRefill, lastRefill, newLastRefill) {
			// Another caller refilled concurrently; retry.
			continue
		}

		atomic.StoreInt64(&rl.tokens, newTokens)
		return
	}
}

// consumeToken attempts to take one token.
func (rl *RateLimiter) consumeToken() bool {
	for {
		current := atomic.LoadInt64(&rl.tokens)
		if current <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&rl.tokens, current, current-1) {
			return true
		}
	}
}
