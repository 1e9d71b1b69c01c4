// Package csync provides a thread-safe generic map used to coordinate the
// pipeline's concurrent stages: the cache's single-flight in-flight table
// and the executor's per-task done-signal and result tables.
//
// Example usage:
//
//	inflight := csync.NewMap[model.CacheKey, chan struct{}]()
//	inflight.Set(key, done)
//	if ch, exists := inflight.Get(key); exists {
//		<-ch
//	}
//
// All operations are thread-safe and can be called concurrently from
// multiple goroutines without additional synchronization.
package csync