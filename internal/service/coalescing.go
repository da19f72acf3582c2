package service

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/weather-snapshot-client/internal/models"
)

// inFlightFetch is one backend fetch that several lookups may wait on.
type inFlightFetch struct {
	done   chan struct{} // closed once result and err are set
	result models.Snapshot
	err    error
}

// requestCoalescer collapses concurrent fetches for the same cache key into one.
type requestCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*inFlightFetch
	timeout  time.Duration
}

func newRequestCoalescer(timeout time.Duration) *requestCoalescer {
	return &requestCoalescer{
		inFlight: make(map[string]*inFlightFetch),
		timeout:  timeout,
	}
}

// GetOrDo runs fn for key unless a fetch for key is already running, in which
// case it waits for that result. shared reports whether the result came from
// another caller's fetch. Waiting is bounded by ctx and the coalescer timeout.
func (rc *requestCoalescer) GetOrDo(ctx context.Context, key string, fn func() (models.Snapshot, error)) (result models.Snapshot, shared bool, err error) {
	rc.mu.Lock()
	if call, ok := rc.inFlight[key]; ok {
		rc.mu.Unlock()
		result, err = rc.wait(ctx, call)
		return result, true, err
	}
	call := &inFlightFetch{done: make(chan struct{})}
	rc.inFlight[key] = call
	rc.mu.Unlock()

	go func() {
		call.result, call.err = fn()
		rc.mu.Lock()
		delete(rc.inFlight, key)
		rc.mu.Unlock()
		close(call.done)
	}()

	result, err = rc.wait(ctx, call)
	return result, false, err
}

func (rc *requestCoalescer) wait(ctx context.Context, call *inFlightFetch) (models.Snapshot, error) {
	waitCtx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()
	select {
	case <-call.done:
		if call.err != nil {
			return models.Snapshot{}, call.err
		}
		return call.result, nil
	case <-waitCtx.Done():
		return models.Snapshot{}, waitCtx.Err()
	}
}

// pending returns the number of keys with a fetch in progress.
func (rc *requestCoalescer) pending() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.inFlight)
}
