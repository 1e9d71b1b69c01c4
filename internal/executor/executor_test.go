package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbindex/indexer/internal/model"
)

func baseConfig() Config {
	return Config{MaxConcurrentOperations: 4, MaxRetries: 0, RetryDelay: time.Millisecond}
}

func TestRun_DryRunSkipsEveryTaskWithoutCallingHandlers(t *testing.T) {
	called := false
	handlers := Handlers{
		model.TaskAnalyzeFile: func(ctx context.Context, target string) error {
			called = true
			return nil
		},
	}
	cfg := baseConfig()
	cfg.DryRun = true
	e := New(cfg, handlers, nil)

	plan := &model.Plan{Tasks: []model.Task{{ID: "1", Kind: model.TaskAnalyzeFile, Target: "a.go"}}}
	results, err := e.Run(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("dry run must not invoke task handlers")
	}
	if len(results) != 1 || !results[0].Skipped {
		t.Errorf("results = %+v, want one skipped result", results)
	}
}

func TestRun_WaitsForDependencyBeforeRunning(t *testing.T) {
	var mu sync.Mutex
	var order []string

	handlers := Handlers{
		model.TaskAnalyzeFile: func(ctx context.Context, target string) error {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			order = append(order, "analyze")
			mu.Unlock()
			return nil
		},
		model.TaskSynthesizeDirectory: func(ctx context.Context, target string) error {
			mu.Lock()
			order = append(order, "synthesize")
			mu.Unlock()
			return nil
		},
	}
	e := New(baseConfig(), handlers, nil)

	plan := &model.Plan{Tasks: []model.Task{
		{ID: "synth", Kind: model.TaskSynthesizeDirectory, Target: "dir", DependsOn: []string{"analyze"}},
		{ID: "analyze", Kind: model.TaskAnalyzeFile, Target: "a.go"},
	}}

	results, err := e.Run(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("task %s failed: %v", r.Task.ID, r.Err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "analyze" || order[1] != "synthesize" {
		t.Errorf("execution order = %v, want [analyze synthesize]", order)
	}
}

func TestRun_DependencyFailureSkipsDependent(t *testing.T) {
	handlers := Handlers{
		model.TaskAnalyzeFile: func(ctx context.Context, target string) error {
			return fmt.Errorf("boom")
		},
		model.TaskSynthesizeDirectory: func(ctx context.Context, target string) error {
			return nil
		},
	}
	cfg := baseConfig()
	cfg.ContinueOnFileErrors = false
	e := New(cfg, handlers, nil)

	plan := &model.Plan{Tasks: []model.Task{
		{ID: "analyze", Kind: model.TaskAnalyzeFile, Target: "a.go"},
		{ID: "synth", Kind: model.TaskSynthesizeDirectory, Target: "dir", DependsOn: []string{"analyze"}},
	}}

	results, err := e.Run(context.Background(), plan)
	if err == nil {
		t.Fatal("expected Run to report the failed dependency when ContinueOnFileErrors is false")
	}

	byID := make(map[string]TaskResult)
	for _, r := range results {
		byID[r.Task.ID] = r
	}
	if byID["analyze"].Err == nil {
		t.Error("expected analyze to fail")
	}
	if !byID["synth"].Skipped {
		t.Error("expected synth to be skipped after its dependency failed")
	}
}

func TestRun_FatalErrorWhenContinueOnFileErrorsFalse(t *testing.T) {
	handlers := Handlers{
		model.TaskAnalyzeFile: func(ctx context.Context, target string) error {
			return fmt.Errorf("boom")
		},
	}
	cfg := baseConfig()
	cfg.ContinueOnFileErrors = false
	e := New(cfg, handlers, nil)

	plan := &model.Plan{Tasks: []model.Task{{ID: "analyze", Kind: model.TaskAnalyzeFile, Target: "a.go"}}}
	_, err := e.Run(context.Background(), plan)
	if err == nil {
		t.Fatal("expected a fatal error when ContinueOnFileErrors is false and a task fails")
	}
}

func TestRun_RetriesUpToMaxRetriesThenSucceeds(t *testing.T) {
	var attempts int32
	handlers := Handlers{
		model.TaskAnalyzeFile: func(ctx context.Context, target string) error {
			n := atomic.AddInt32(&attempts, 1)
			if n < 3 {
				return fmt.Errorf("transient failure %d", n)
			}
			return nil
		},
	}
	cfg := baseConfig()
	cfg.MaxRetries = 2
	cfg.RetryDelay = time.Millisecond
	e := New(cfg, handlers, nil)

	plan := &model.Plan{Tasks: []model.Task{{ID: "analyze", Kind: model.TaskAnalyzeFile, Target: "a.go"}}}
	results, err := e.Run(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Err != nil {
		t.Errorf("expected eventual success, got %v", results[0].Err)
	}
	if results[0].Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", results[0].Attempts)
	}
}

func TestRun_ConcurrencyBoundedBySemaphore(t *testing.T) {
	var current, max int32
	var mu sync.Mutex
	handlers := Handlers{
		model.TaskAnalyzeFile: func(ctx context.Context, target string) error {
			n := atomic.AddInt32(&current, 1)
			mu.Lock()
			if n > max {
				max = n
			}
			mu.Unlock()
			time.Sleep(15 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return nil
		},
	}
	cfg := baseConfig()
	cfg.MaxConcurrentOperations = 2
	e := New(cfg, handlers, nil)

	var tasks []model.Task
	for i := 0; i < 8; i++ {
		tasks = append(tasks, model.Task{ID: fmt.Sprintf("t%d", i), Kind: model.TaskAnalyzeFile, Target: fmt.Sprintf("f%d.go", i)})
	}
	plan := &model.Plan{Tasks: tasks}

	if _, err := e.Run(context.Background(), plan); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if max > 2 {
		t.Errorf("observed %d concurrent tasks, want at most 2", max)
	}
}

func TestRun_MissingHandlerFails(t *testing.T) {
	cfg := baseConfig()
	cfg.ContinueOnFileErrors = true
	e := New(cfg, Handlers{}, nil)

	plan := &model.Plan{Tasks: []model.Task{{ID: "t", Kind: model.TaskAnalyzeFile, Target: "a.go"}}}
	results, err := e.Run(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Err == nil {
		t.Error("expected an error for a task kind with no registered handler")
	}
}
