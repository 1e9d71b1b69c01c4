// Package executor implements C8 from spec.md §4.7: a DAG-aware task
// runner with bounded concurrency, retries, and dry-run support.
// Generalizes the teacher's internal/llm/queue Manager+Processor+
// Deduplicator (_examples/billie-coop-loco/internal/llm/queue), which
// schedules a flat priority queue with a fixed worker pool, into
// dependency-gated scheduling: a task becomes eligible only once every
// entry in its DependsOn list has finished, mirroring Manager.Submit's
// single entry point and Processor's semaphore-style concurrency but
// replacing priority ordering with DAG readiness.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbindex/indexer/internal/csync"
	"github.com/kbindex/indexer/internal/logx"
	"github.com/kbindex/indexer/internal/model"
)

// TaskFunc performs the side effects of one task kind.
type TaskFunc func(ctx context.Context, target string) error

// Handlers dispatches each model.TaskKind to the function that executes
// it. Missing entries are treated as an unsupported-kind failure.
type Handlers map[model.TaskKind]TaskFunc

// Config bounds the executor's behavior, sourced from config.Config's
// file-processing, error-handling, and debug groups (spec.md §4.1, §4.7).
type Config struct {
	MaxConcurrentOperations int
	MaxRetries              int
	RetryDelay              time.Duration
	ContinueOnFileErrors    bool
	TaskTimeout             time.Duration
	DryRun                  bool
}

// TaskResult records the outcome of one executed task.
type TaskResult struct {
	Task     model.Task
	Err      error
	Attempts int
	Skipped  bool // dry-run or dependency-failure skip
}

// Executor runs a Plan's tasks respecting the dependency partial order
// (spec.md §4.7 "Ordering guarantees").
type Executor struct {
	cfg      Config
	handlers Handlers
	log      *logx.Logger
}

// New builds an Executor with the given config and per-kind task
// handlers.
func New(cfg Config, handlers Handlers, log *logx.Logger) *Executor {
	if cfg.MaxConcurrentOperations < 1 {
		cfg.MaxConcurrentOperations = 1
	}
	if log == nil {
		log = logx.Default
	}
	return &Executor{cfg: cfg, handlers: handlers, log: log}
}

// Run executes every task in plan, gating on dependencies and bounding
// concurrency by a semaphore of width MaxConcurrentOperations (spec.md
// §5 "Bounded concurrency"). It returns one TaskResult per task, and a
// non-nil error iff ContinueOnFileErrors is false and at least one task
// failed.
func (e *Executor) Run(ctx context.Context, plan *model.Plan) ([]TaskResult, error) {
	if e.cfg.DryRun {
		results := make([]TaskResult, len(plan.Tasks))
		for i, t := range plan.Tasks {
			results[i] = TaskResult{Task: t, Skipped: true}
		}
		e.log.Info("dry run: %d tasks planned, no side effects performed", len(plan.Tasks))
		return results, nil
	}

	sem := make(chan struct{}, e.cfg.MaxConcurrentOperations)
	done := csync.NewMap[string, chan struct{}]()
	for _, t := range plan.Tasks {
		done.Set(t.ID, make(chan struct{}))
	}

	results := csync.NewMap[string, *TaskResult]()
	var wg sync.WaitGroup
	var mu sync.Mutex
	var fatalErr error

	for _, t := range plan.Tasks {
		wg.Add(1)
		go func(t model.Task) {
			defer wg.Done()
			defer close(mustGet(done, t.ID))

			if !e.awaitDependencies(ctx, t, done, results) {
				mu.Lock()
				alreadyFatal := fatalErr != nil
				mu.Unlock()
				if !e.cfg.ContinueOnFileErrors || alreadyFatal {
					results.Set(t.ID, &TaskResult{Task: t, Skipped: true, Err: fmt.Errorf("dependency failed")})
					return
				}
			}

			sem <- struct{}{}
			defer func() { <-sem }()

			res := e.runWithRetry(ctx, t)
			results.Set(t.ID, &res)

			if res.Err != nil && !e.cfg.ContinueOnFileErrors {
				mu.Lock()
				if fatalErr == nil {
					fatalErr = fmt.Errorf("task %s (%s, %s) failed: %w", t.ID, t.Kind, t.Target, res.Err)
				}
				mu.Unlock()
			}
		}(t)
	}

	wg.Wait()

	out := make([]TaskResult, len(plan.Tasks))
	for i, t := range plan.Tasks {
		r, _ := results.Get(t.ID)
		out[i] = *r
	}
	return out, fatalErr
}

func mustGet(m *csync.Map[string, chan struct{}], id string) chan struct{} {
	ch, _ := m.Get(id)
	return ch
}

// awaitDependencies blocks until every dependency of t has finished, and
// reports whether all of them succeeded.
func (e *Executor) awaitDependencies(ctx context.Context, t model.Task, done *csync.Map[string, chan struct{}], results *csync.Map[string, *TaskResult]) bool {
	ok := true
	for _, depID := range t.DependsOn {
		ch, exists := done.Get(depID)
		if !exists {
			continue
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return false
		}
		if r, found := results.Get(depID); found && (r.Err != nil || r.Skipped) {
			ok = false
		}
	}
	return ok
}

// runWithRetry executes one task, retrying up to MaxRetries times with
// exponential backoff starting at RetryDelay (spec.md §4.7 "Retry
// policy").
func (e *Executor) runWithRetry(ctx context.Context, t model.Task) TaskResult {
	fn, ok := e.handlers[t.Kind]
	if !ok {
		return TaskResult{Task: t, Err: fmt.Errorf("executor: no handler registered for task kind %q", t.Kind)}
	}

	delay := e.cfg.RetryDelay
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries+1; attempt++ {
		taskCtx := ctx
		var cancel context.CancelFunc
		if e.cfg.TaskTimeout > 0 {
			taskCtx, cancel = context.WithTimeout(ctx, e.cfg.TaskTimeout)
		}
		err := fn(taskCtx, t.Target)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return TaskResult{Task: t, Attempts: attempt}
		}
		lastErr = err
		e.log.Warn("task %s (%s, %s) attempt %d/%d failed: %v", t.ID, t.Kind, t.Target, attempt, e.cfg.MaxRetries+1, err)

		if attempt <= e.cfg.MaxRetries {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return TaskResult{Task: t, Err: ctx.Err(), Attempts: attempt}
			}
			delay *= 2
		}
	}
	return TaskResult{Task: t, Err: lastErr, Attempts: e.cfg.MaxRetries + 1}
}
