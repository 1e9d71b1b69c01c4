// Package run is the top-level orchestrator wiring every component (C1
// through C11) into one indexing pass (spec.md §2 "Data flow: Config →
// Handler Registry selects Handler → Discovery yields tree → Decision
// Engine marks staleness → Plan lists tasks → Executor runs tasks (LLM
// via Adapter, reads/writes Cache, writes KB via Assembler)."). Grounded
// in the teacher's main.go wiring style
// (_examples/billie-coop-loco/main.go), which constructs its Manager,
// Client, and session objects by hand in one place rather than through a
// framework-driven container.
package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kbindex/indexer/internal/cache"
	"github.com/kbindex/indexer/internal/config"
	"github.com/kbindex/indexer/internal/decision"
	"github.com/kbindex/indexer/internal/discovery"
	"github.com/kbindex/indexer/internal/executor"
	"github.com/kbindex/indexer/internal/handler"
	"github.com/kbindex/indexer/internal/kbfile"
	"github.com/kbindex/indexer/internal/llm"
	"github.com/kbindex/indexer/internal/logx"
	"github.com/kbindex/indexer/internal/model"
	"github.com/kbindex/indexer/internal/plan"
	"github.com/kbindex/indexer/internal/prompts"
)

// Options configures one indexing run over a single source. Registry
// resolves the Handler that will own the run (spec.md §4.2, C2); passing
// a pre-selected Handler directly would bypass the registry's
// one-owner-per-path routing, so Run performs the resolution itself.
type Options struct {
	KnowledgeDir string
	SourceRoot   string
	Registry     *handler.Registry
	Config       *config.Config
	Adapter      *llm.Adapter
	Log          *logx.Logger
}

// Run executes one full plan-then-execute pass and returns the
// aggregated IndexingStatus (spec.md §6.4).
func Run(ctx context.Context, opts Options) (*model.IndexingStatus, error) {
	log := opts.Log
	if log == nil {
		log = logx.Default
	}

	h := opts.Registry.Resolve(opts.SourceRoot)
	if h == nil {
		// spec.md §4.2: "Callers must treat None as SKIP with reason
		// NO_HANDLER_AVAILABLE — never guess."
		return &model.IndexingStatus{
			Status: model.RunSkipped,
			Stats:  model.Stats{Errors: []string{fmt.Sprintf("%s: %s", model.ReasonNoHandlerAvailable, opts.SourceRoot)}},
		}, nil
	}

	tree, err := discovery.Walk(h, opts.SourceRoot, opts.SourceRoot, opts.Config.FileProcessing.MaxFileSize)
	if err != nil {
		return nil, model.NewError(model.KindFilesystem, opts.SourceRoot, err)
	}

	cacheRoot := filepath.Join(opts.KnowledgeDir, h.HandlerType(), "cache")
	store := cache.New(cacheRoot)
	flight := cache.NewFlight()

	eng := decision.New(h, store, opts.KnowledgeDir, opts.SourceRoot, opts.Config.ChangeDetection.Mode, opts.Config.ChangeDetection.TimestampToleranceSeconds)
	report, err := eng.Evaluate(tree)
	if err != nil {
		return nil, model.NewError(model.KindDecision, opts.SourceRoot, err)
	}

	p := plan.Build(tree, report.Decisions, report.Orphans)

	fileIndex, dirIndex := indexTree(tree)

	stats := &model.Stats{}
	b := &builder{
		opts:      opts,
		handler:   h,
		store:     store,
		flight:    flight,
		fileIndex: fileIndex,
		dirIndex:  dirIndex,
		stats:     stats,
		log:       log,
	}

	handlers := executor.Handlers{
		model.TaskAnalyzeFile:          b.analyzeFile,
		model.TaskSynthesizeDirectory:  b.synthesizeDirectory,
		model.TaskAssembleKB:           b.assembleKB,
		model.TaskDeleteOrphan:        b.deleteOrphan,
	}

	execCfg := executor.Config{
		MaxConcurrentOperations: opts.Config.FileProcessing.MaxConcurrentOperations,
		MaxRetries:              opts.Config.ErrorHandling.MaxRetries,
		RetryDelay:              time.Duration(opts.Config.ErrorHandling.RetryDelaySeconds) * time.Second,
		ContinueOnFileErrors:    opts.Config.ErrorHandling.ContinueOnFileErrors,
		DryRun:                  opts.Config.Debug.DryRun,
	}
	ex := executor.New(execCfg, handlers, log)

	results, runErr := ex.Run(ctx, p)

	status := model.RunCompleted
	for _, r := range results {
		if r.Err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s %s: %v", r.Task.Kind, r.Task.Target, r.Err))
		}
	}
	if runErr != nil {
		status = model.RunFailed
	}

	countTree(tree, stats)

	return &model.IndexingStatus{Status: status, Root: tree, Stats: *stats}, nil
}

func indexTree(root *model.DirectoryContext) (map[string]*model.FileContext, map[string]*model.DirectoryContext) {
	files := make(map[string]*model.FileContext)
	dirs := make(map[string]*model.DirectoryContext)
	var walk func(d *model.DirectoryContext)
	walk = func(d *model.DirectoryContext) {
		dirs[d.DirectoryPath] = d
		for _, f := range d.Files {
			files[f.FilePath] = f
		}
		for _, sub := range d.Subdirs {
			walk(sub)
		}
	}
	walk(root)
	return files, dirs
}

func countTree(d *model.DirectoryContext, stats *model.Stats) {
	stats.DirectoriesProcessed++
	for _, f := range d.Files {
		stats.FilesDiscovered++
		switch f.ProcessingStatus {
		case model.StatusCompleted:
			stats.FilesCompleted++
			stats.FilesProcessed++
		case model.StatusFailed:
			stats.FilesFailed++
			stats.FilesProcessed++
		case model.StatusSkipped:
			stats.FilesSkipped++
		}
		stats.TotalBytes += f.FileSize
	}
	for _, sub := range d.Subdirs {
		countTree(sub, stats)
	}
}

// builder closes over shared run state for the executor's task handlers.
type builder struct {
	opts      Options
	handler   handler.Handler
	store     *cache.Store
	flight    *cache.Flight
	fileIndex map[string]*model.FileContext
	dirIndex  map[string]*model.DirectoryContext
	stats     *model.Stats
	log       *logx.Logger
}

func (b *builder) relPath(absPath string) string {
	rel, err := filepath.Rel(b.opts.SourceRoot, absPath)
	if err != nil {
		return filepath.ToSlash(absPath)
	}
	return filepath.ToSlash(rel)
}

// analyzeFile implements spec.md §4.7's analyze_file task semantics.
func (b *builder) analyzeFile(ctx context.Context, target string) error {
	f, ok := b.fileIndex[target]
	if !ok {
		return fmt.Errorf("run: unknown file target %q", target)
	}
	f.ProcessingStatus = model.StatusProcessing
	f.StartedAt = time.Now()

	key := model.CacheKey{RelativePath: b.relPath(target), Stage: model.StageFileAnalysis}

	var content string
	var err error
	if f.FileSize == 0 {
		content = prompts.EmptyFileAnalysis(b.relPath(target), f.FileSize, filepath.Ext(target))
	} else {
		var produced []byte
		produced, err = b.flight.Do(key, func() ([]byte, error) {
			data, err := os.ReadFile(target)
			if err != nil {
				return nil, err
			}
			prompt := prompts.FileAnalysis(b.relPath(target), filepath.Ext(target), string(data))
			resp, err := b.opts.Adapter.Call(ctx, model.StageFileAnalysis, target, prompt)
			if err != nil {
				return nil, err
			}
			b.stats.LLMRequests++
			return []byte(resp), nil
		})
		content = string(produced)
	}
	if err != nil {
		f.ProcessingStatus = model.StatusFailed
		f.ErrorMessage = err.Error()
		f.FinishedAt = time.Now()
		return err
	}

	if err := b.store.Put(key, []byte(content)); err != nil {
		f.ProcessingStatus = model.StatusFailed
		f.ErrorMessage = err.Error()
		return err
	}

	f.KnowledgeContent = content
	f.ProcessingStatus = model.StatusCompleted
	f.FinishedAt = time.Now()
	return nil
}

// synthesizeDirectory implements spec.md §4.7's synthesize_directory task
// semantics, chunking when inputs exceed executor.ChunkTokenThreshold.
func (b *builder) synthesizeDirectory(ctx context.Context, target string) error {
	d, ok := b.dirIndex[target]
	if !ok {
		return fmt.Errorf("run: unknown directory target %q", target)
	}
	d.ProcessingStatus = model.StatusProcessing
	d.StartedAt = time.Now()

	var items []string
	for _, f := range d.Files {
		if f.ProcessingStatus == model.StatusSkipped {
			continue
		}
		if c := b.fileContent(f); c != "" {
			items = append(items, c)
		}
	}
	for _, sub := range d.Subdirs {
		if s := b.directorySummary(sub); s != "" {
			items = append(items, s)
		}
	}

	aggregated, err := b.aggregate(ctx, target, items)
	if err != nil {
		d.ProcessingStatus = model.StatusFailed
		return err
	}

	key := model.CacheKey{RelativePath: b.relPath(target), Stage: model.StageDirectoryAnalysis}
	prompt := prompts.DirectoryAnalysis(b.relPath(target), aggregated)
	summary, err := b.opts.Adapter.Call(ctx, model.StageDirectoryAnalysis, target, prompt)
	if err != nil {
		d.ProcessingStatus = model.StatusFailed
		return err
	}
	b.stats.LLMRequests++
	if err := b.store.Put(key, []byte(summary)); err != nil {
		return err
	}

	d.DirectorySummary = summary
	d.ProcessingStatus = model.StatusCompleted
	d.FinishedAt = time.Now()
	return nil
}

// directorySummary returns d's synthesized summary for this run if
// synthesize_directory just produced one, or, for a kept (SKIP) directory
// whose in-memory DirectoryContext was never populated this run, the
// summary persisted from a prior run's directory-analysis cache entry —
// so a parent that rebuilds still re-references an unchanged child's
// current summary rather than treating it as blank (spec.md §4.6:
// "assemble_kb depends on A_child even for kept children so that the
// parent KB re-references their current summaries").
func (b *builder) directorySummary(d *model.DirectoryContext) string {
	if d.DirectorySummary != "" {
		return d.DirectorySummary
	}
	key := model.CacheKey{RelativePath: b.relPath(d.DirectoryPath), Stage: model.StageDirectoryAnalysis}
	content, _, ok, err := b.store.Get(key)
	if err != nil || !ok {
		return ""
	}
	return string(content)
}

// fileContent mirrors directorySummary for files: it returns f's analysis
// from this run if analyze_file just completed it, or, for a file this
// run left SKIP/up-to-date (so its in-memory FileContext was never
// populated), the content persisted from a prior run's file-analysis
// cache entry. A permanently failed file (spec.md §7's
// continue_on_file_errors isolation) yields "" so its parent's synthesis
// and KB section correctly record the omission rather than stale data.
func (b *builder) fileContent(f *model.FileContext) string {
	if f.IsCompleted() {
		return f.KnowledgeContent
	}
	if f.ProcessingStatus == model.StatusFailed {
		return ""
	}
	key := model.CacheKey{RelativePath: b.relPath(f.FilePath), Stage: model.StageFileAnalysis}
	content, _, ok, err := b.store.Get(key)
	if err != nil || !ok {
		return ""
	}
	return string(content)
}

func (b *builder) aggregate(ctx context.Context, target string, items []string) (string, error) {
	if !executor.NeedsChunking(items) {
		var joined string
		for _, it := range items {
			joined += it + "\n\n"
		}
		return joined, nil
	}

	chunks := executor.Chunk(items)
	summaries := make([]string, 0, len(chunks))
	for i, c := range chunks {
		prompt := prompts.ChunkAnalysis(b.relPath(target), i, len(chunks), c)
		resp, err := b.opts.Adapter.CallChunk(ctx, model.StageChunkAnalysis, target, fmt.Sprintf("%d", i), prompt)
		if err != nil {
			return "", err
		}
		b.stats.LLMRequests++
		summaries = append(summaries, resp)
	}

	prompt := prompts.ChunkAggregate(b.relPath(target), summaries)
	resp, err := b.opts.Adapter.Call(ctx, model.StageChunkAggregate, target, prompt)
	if err != nil {
		return "", err
	}
	b.stats.LLMRequests++
	return resp, nil
}

// assembleKB implements spec.md §4.7's assemble_kb task: invoke the
// Assembler (C11) after synthesize_directory has run.
func (b *builder) assembleKB(ctx context.Context, target string) error {
	d, ok := b.dirIndex[target]
	if !ok {
		return fmt.Errorf("run: unknown directory target %q", target)
	}

	doc := kbfile.Document{
		DirectoryPath: target,
		SourceRoot:    b.opts.SourceRoot,
		GlobalSummary: d.DirectorySummary,
	}
	for _, f := range d.Files {
		if f.ProcessingStatus == model.StatusSkipped {
			continue
		}
		doc.Files = append(doc.Files, kbfile.FileEntry{Path: f.FilePath, Summary: b.fileContent(f)})
	}
	for _, sub := range d.Subdirs {
		summary := b.directorySummary(sub)
		if summary == "" {
			continue // EMPTY_DIRECTORY subdirs never produce a KB file or summary (invariant 5)
		}
		doc.Subdirs = append(doc.Subdirs, kbfile.SubdirEntry{Path: sub.DirectoryPath, Summary: summary})
	}
	doc.KBOutputPath = b.handler.KnowledgePath(b.opts.KnowledgeDir, b.opts.SourceRoot, target)

	if target == b.opts.SourceRoot {
		prompt := prompts.GlobalSummary(b.opts.SourceRoot, d.DirectorySummary)
		resp, err := b.opts.Adapter.Call(ctx, model.StageGlobalSummary, target, prompt)
		if err == nil {
			b.stats.LLMRequests++
			doc.GlobalSummary = resp
		}
	}

	d.KnowledgeFilePath = doc.KBOutputPath
	return kbfile.Assemble(doc, time.Now())
}

// deleteOrphan implements spec.md §4.7's delete_orphan task: remove the
// file; idempotent.
func (b *builder) deleteOrphan(ctx context.Context, target string) error {
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
