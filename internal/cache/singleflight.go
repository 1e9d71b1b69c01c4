package cache

import (
	"sync"

	"github.com/kbindex/indexer/internal/csync"
	"github.com/kbindex/indexer/internal/model"
)

// result is the shared outcome of one in-flight build.
type result struct {
	done    chan struct{}
	content []byte
	err     error
}

// Flight guarantees at-most-one concurrent build per fingerprint (spec.md
// §4.4, invariant 3): "single-flight(key, producer): ... Implemented with
// a per-process map from key to an in-flight awaitable; additional
// callers subscribe to the same awaitable." Built on internal/csync.Map,
// the same generic map the teacher's queue.Deduplicator
// (_examples/billie-coop-loco/internal/llm/queue) uses for in-flight
// tracking.
type Flight struct {
	mu       sync.Mutex
	inflight *csync.Map[model.CacheKey, *result]
}

// NewFlight builds an empty Flight tracker.
func NewFlight() *Flight {
	return &Flight{inflight: csync.NewMap[model.CacheKey, *result]()}
}

// Do runs produce() for key if no build is already in flight, otherwise
// blocks until the in-flight build completes and returns its result. Only
// one goroutine per key ever calls produce.
func (f *Flight) Do(key model.CacheKey, produce func() ([]byte, error)) ([]byte, error) {
	f.mu.Lock()
	if r, ok := f.inflight.Get(key); ok {
		f.mu.Unlock()
		<-r.done
		return r.content, r.err
	}
	r := &result{done: make(chan struct{})}
	f.inflight.Set(key, r)
	f.mu.Unlock()

	r.content, r.err = produce()
	close(r.done)

	f.mu.Lock()
	f.inflight.Delete(key)
	f.mu.Unlock()

	return r.content, r.err
}
