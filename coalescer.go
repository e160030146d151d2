package parkfind

import (
	"context"
	"sync"
)

// inflightCall is a single remote resolution shared between callers.
type inflightCall struct {
	done    chan struct{}
	result  *RouteResult
	err     error
	waiters int
}

// Coalescer guarantees at most one concurrent remote resolution per key.
// Callers arriving while a resolution for the same key is pending wait for
// the existing one and receive the same outcome. Entries are removed the
// moment they settle, so a later request starts a fresh resolution.
type Coalescer struct {
	mu       sync.Mutex
	inflight map[string]*inflightCall
}

// NewCoalescer returns an empty coalescer.
func NewCoalescer() *Coalescer {
	return &Coalescer{inflight: make(map[string]*inflightCall)}
}

// Do executes fn for key unless a call for the same key is already pending,
// in which case it waits for that call instead. The returned bool reports
// whether the result was shared from another caller's resolution. A waiter
// whose ctx is cancelled abandons the wait without affecting the owner.
func (co *Coalescer) Do(ctx context.Context, key string, fn func() (*RouteResult, error)) (*RouteResult, error, bool) {
	co.mu.Lock()
	if call, ok := co.inflight[key]; ok {
		call.waiters++
		co.mu.Unlock()

		select {
		case <-call.done:
			return call.result, call.err, true
		case <-ctx.Done():
			return nil, ctx.Err(), true
		}
	}

	call := &inflightCall{done: make(chan struct{})}
	co.inflight[key] = call
	co.mu.Unlock()

	result, err := fn()

	co.mu.Lock()
	// Guard against Forget having replaced the entry while fn ran.
	if co.inflight[key] == call {
		delete(co.inflight, key)
	}
	co.mu.Unlock()

	call.result = result
	call.err = err
	close(call.done)

	return result, err, false
}

// Forget drops any pending entry for key so the next caller starts its own
// resolution. Existing waiters still receive the original outcome.
func (co *Coalescer) Forget(key string) {
	co.mu.Lock()
	delete(co.inflight, key)
	co.mu.Unlock()
}

// InFlight reports the number of pending resolutions.
func (co *Coalescer) InFlight() int {
	co.mu.Lock()
	defer co.mu.Unlock()
	return len(co.inflight)
}

// Waiters reports how many callers besides the owner are waiting on key.
func (co *Coalescer) Waiters(key string) int {
	co.mu.Lock()
	defer co.mu.Unlock()
	if call, ok := co.inflight[key]; ok {
		return call.waiters
	}
	return 0
}
