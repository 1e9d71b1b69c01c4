package executor

import (
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Metrics tracks a running exponential moving average of task duration
// and an error count, the same adaptive-concurrency signal the teacher's
// queue.Processor.GetMetrics feeds into AdaptConcurrency
// (_examples/billie-coop-loco/internal/llm/queue/manager.go), surfaced
// here for observability rather than auto-tuning concurrency — the spec
// fixes max_concurrent_operations as an explicit config value (§4.1)
// rather than letting the executor adjust it.
type Metrics struct {
	mu        sync.Mutex
	avgTime   time.Duration
	completed int
	failed    int
}

// NewMetrics builds an empty Metrics tracker.
func NewMetrics() *Metrics { return &Metrics{} }

// Record folds one task's outcome into the running average, using a
// smoothing factor of 0.2 (recent samples weigh more, matching the
// teacher's responsiveness-over-stability tradeoff).
func (m *Metrics) Record(d time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.avgTime == 0 {
		m.avgTime = d
	} else {
		m.avgTime = time.Duration(0.8*float64(m.avgTime) + 0.2*float64(d))
	}
	m.completed++
	if err != nil {
		m.failed++
	}
}

// Snapshot returns the current average duration and error rate.
func (m *Metrics) Snapshot() (avg time.Duration, errorRate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completed == 0 {
		return 0, 0
	}
	return m.avgTime, float64(m.failed) / float64(m.completed)
}

// NewProgressBar builds a terminal progress bar for total tasks
// (SPEC_FULL.md DOMAIN STACK: schollz/progressbar/v3).
func NewProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}
