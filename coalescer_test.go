package parkfind

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCoalescerSharesResultAcrossCallers(t *testing.T) {
	co := NewCoalescer()
	release := make(chan struct{})
	var executions int64

	fn := func() (*RouteResult, error) {
		atomic.AddInt64(&executions, 1)
		<-release
		return &RouteResult{DistanceKm: 2.5, Method: MethodRouted}, nil
	}

	const callers = 10
	results := make([]*RouteResult, callers)
	shared := make([]bool, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err, wasShared := co.Do(context.Background(), "key1", fn)
			if err != nil {
				t.Errorf("caller %d: unexpected error: %v", i, err)
			}
			results[i] = result
			shared[i] = wasShared
		}(i)
	}

	// Give the waiters time to register before settlement.
	deadline := time.After(time.Second)
	for co.Waiters("key1") < callers-1 {
		select {
		case <-deadline:
			t.Fatalf("only %d waiters registered", co.Waiters("key1"))
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(release)
	wg.Wait()

	if got := atomic.LoadInt64(&executions); got != 1 {
		t.Errorf("fn executed %d times, want 1", got)
	}

	owners := 0
	for i := 0; i < callers; i++ {
		if results[i] == nil || results[i].DistanceKm != 2.5 {
			t.Errorf("caller %d received wrong result: %+v", i, results[i])
		}
		if !shared[i] {
			owners++
		}
	}
	if owners != 1 {
		t.Errorf("%d callers reported owning the resolution, want 1", owners)
	}
}

func TestCoalescerSharesError(t *testing.T) {
	co := NewCoalescer()
	release := make(chan struct{})
	wantErr := errors.New("provider down")

	go func() {
		co.Do(context.Background(), "key1", func() (*RouteResult, error) {
			<-release
			return nil, wantErr
		})
	}()

	waitForInFlight(t, co, 1)

	done := make(chan error, 1)
	go func() {
		_, err, _ := co.Do(context.Background(), "key1", func() (*RouteResult, error) {
			t.Error("waiter must not execute fn")
			return nil, nil
		})
		done <- err
	}()

	waitForWaiters(t, co, "key1", 1)
	close(release)

	if err := <-done; !errors.Is(err, wantErr) {
		t.Errorf("waiter error = %v, want %v", err, wantErr)
	}
}

func TestCoalescerRemovesEntryOnSettlement(t *testing.T) {
	co := NewCoalescer()
	var executions int64

	fn := func() (*RouteResult, error) {
		atomic.AddInt64(&executions, 1)
		return &RouteResult{Method: MethodRouted}, nil
	}

	if _, err, _ := co.Do(context.Background(), "key1", fn); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if got := co.InFlight(); got != 0 {
		t.Fatalf("InFlight = %d after settlement, want 0", got)
	}

	// A later request must start fresh, not observe the settled call.
	if _, err, shared := co.Do(context.Background(), "key1", fn); err != nil || shared {
		t.Fatalf("second call: err=%v shared=%v, want nil/false", err, shared)
	}
	if got := atomic.LoadInt64(&executions); got != 2 {
		t.Errorf("fn executed %d times, want 2", got)
	}
}

func TestCoalescerWaiterContextCancellation(t *testing.T) {
	co := NewCoalescer()
	release := make(chan struct{})

	ownerDone := make(chan *RouteResult, 1)
	go func() {
		result, _, _ := co.Do(context.Background(), "key1", func() (*RouteResult, error) {
			<-release
			return &RouteResult{DistanceKm: 1.0, Method: MethodRouted}, nil
		})
		ownerDone <- result
	}()

	waitForInFlight(t, co, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err, shared := co.Do(ctx, "key1", func() (*RouteResult, error) {
		t.Error("waiter must not execute fn")
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("waiter error = %v, want context.Canceled", err)
	}
	if !shared {
		t.Error("abandoned waiter should still report a shared call")
	}

	// The owner is unaffected by the waiter's departure.
	close(release)
	select {
	case result := <-ownerDone:
		if result == nil || result.DistanceKm != 1.0 {
			t.Errorf("owner result = %+v, want DistanceKm 1.0", result)
		}
	case <-time.After(time.Second):
		t.Fatal("owner did not complete")
	}
}

func TestCoalescerDistinctKeysRunIndependently(t *testing.T) {
	co := NewCoalescer()
	var executions int64
	release := make(chan struct{})

	var wg sync.WaitGroup
	for _, key := range []string{"key1", "key2"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			co.Do(context.Background(), key, func() (*RouteResult, error) {
				atomic.AddInt64(&executions, 1)
				<-release
				return &RouteResult{Method: MethodRouted}, nil
			})
		}(key)
	}

	waitForInFlight(t, co, 2)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt64(&executions); got != 2 {
		t.Errorf("fn executed %d times, want 2", got)
	}
}

func TestCoalescerForget(t *testing.T) {
	co := NewCoalescer()
	release := make(chan struct{})
	var executions int64

	go func() {
		co.Do(context.Background(), "key1", func() (*RouteResult, error) {
			atomic.AddInt64(&executions, 1)
			<-release
			return &RouteResult{Method: MethodRouted}, nil
		})
	}()

	waitForInFlight(t, co, 1)
	co.Forget("key1")

	// After Forget the next caller owns its own resolution.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, shared := co.Do(context.Background(), "key1", func() (*RouteResult, error) {
			atomic.AddInt64(&executions, 1)
			<-release
			return &RouteResult{Method: MethodRouted}, nil
		})
		if shared {
			t.Error("post-Forget caller should not share the forgotten call")
		}
	}()

	waitForInFlight(t, co, 1)
	close(release)
	<-done

	if got := atomic.LoadInt64(&executions); got != 2 {
		t.Errorf("fn executed %d times, want 2", got)
	}
}

func waitForInFlight(t *testing.T, co *Coalescer, want int) {
	t.Helper()
	deadline := time.After(time.Second)
	for co.InFlight() != want {
		select {
		case <-deadline:
			t.Fatalf("InFlight = %d, want %d", co.InFlight(), want)
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func waitForWaiters(t *testing.T, co *Coalescer, key string, want int) {
	t.Helper()
	deadline := time.After(time.Second)
	for co.Waiters(key) < want {
		select {
		case <-deadline:
			t.Fatalf("Waiters(%s) = %d, want %d", key, co.Waiters(key), want)
		default:
			time.Sleep(time.Millisecond)
		}
	}
}
