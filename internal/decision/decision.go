// Package decision implements C6 from spec.md §4.5: the Rebuild Decision
// Engine. It is a pure function over a DirectoryContext tree plus
// filesystem mtimes it reads (no writes, no LLM calls, per the spec's own
// purity requirement). Grounded in the teacher's staleness idiom for
// deciding whether cached analysis needs refreshing
// (_examples/billie-coop-loco/internal/analysis/service.go's IsStale),
// generalized from the teacher's single boolean trigger into the spec's
// three-trigger directory staleness model.
package decision

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kbindex/indexer/internal/cache"
	"github.com/kbindex/indexer/internal/config"
	"github.com/kbindex/indexer/internal/handler"
	"github.com/kbindex/indexer/internal/model"
)

// Engine evaluates staleness for one handler's subtree.
type Engine struct {
	Handler          handler.Handler
	Cache            *cache.Store
	KnowledgeDir     string
	SourceRoot       string
	Mode             config.ChangeDetectionMode
	ToleranceSeconds int
}

// New builds an Engine for the given handler and cache store.
func New(h handler.Handler, store *cache.Store, knowledgeDir, sourceRoot string, mode config.ChangeDetectionMode, toleranceSeconds int) *Engine {
	return &Engine{Handler: h, Cache: store, KnowledgeDir: knowledgeDir, SourceRoot: sourceRoot, Mode: mode, ToleranceSeconds: toleranceSeconds}
}

// Evaluate walks root and produces a DecisionReport covering every file
// and directory in the tree, plus orphans (spec.md §4.5).
func (e *Engine) Evaluate(root *model.DirectoryContext) (*model.DecisionReport, error) {
	report := &model.DecisionReport{}
	if _, err := e.evalDir(root, true, report); err != nil {
		return nil, err
	}
	orphans, err := e.findOrphans(root)
	if err != nil {
		return nil, err
	}
	report.Orphans = orphans
	return report, nil
}

func (e *Engine) tolerance() time.Duration {
	return time.Duration(e.ToleranceSeconds) * time.Second
}

// evalDir returns the directory's KB mtime so parent directories can
// evaluate Trigger C: zero for an empty directory or a skipped one with no
// KB file, the current time for a directory being rebuilt.
func (e *Engine) evalDir(dir *model.DirectoryContext, isRoot bool, report *model.DecisionReport) (time.Time, error) {
	relPath := dir.DirectoryPath
	kbPath := e.Handler.KnowledgePath(e.KnowledgeDir, e.SourceRoot, dir.DirectoryPath)

	// Children are always evaluated first (bottom-up), per invariant 2.
	childKBTimes := make([]time.Time, 0, len(dir.Subdirs))
	childFileNewer := false
	anyInScopeSubdir := len(dir.Subdirs) > 0
	anyProcessableFile := false

	for _, f := range dir.Files {
		if f.ProcessingStatus != model.StatusSkipped {
			anyProcessableFile = true
		}
	}

	for _, sub := range dir.Subdirs {
		kbMtime, err := e.evalDir(sub, false, report)
		if err != nil {
			return time.Time{}, err
		}
		if !kbMtime.IsZero() {
			childKBTimes = append(childKBTimes, kbMtime)
		}
	}

	// Per-file decisions (spec.md §4.5 "analyze_file stage").
	for _, f := range dir.Files {
		if f.ProcessingStatus == model.StatusSkipped {
			continue // FILE_TOO_LARGE already recorded by discovery
		}
		d, newer, err := e.evalFile(f)
		if err != nil {
			return time.Time{}, err
		}
		report.Decisions = append(report.Decisions, d)
		if newer {
			childFileNewer = true
		}
	}

	// Per-directory decision (spec.md §4.5 "three-trigger staleness").
	var decision model.Decision
	kbInfo, kbErr := os.Stat(kbPath)
	kbExists := kbErr == nil

	switch {
	case isRoot:
		decision = e.directoryDecision(relPath, model.ReasonProjectRootForced, "project root is always rebuilt")
	case !anyProcessableFile && !anyInScopeSubdir:
		decision = e.directoryDecision2(relPath, model.OutcomeSkip, model.ReasonEmptyDirectory, "no processable files or in-scope subdirectories")
	case !kbExists:
		decision = e.directoryDecision(relPath, model.ReasonKBMissing, "no existing KB file")
	default:
		tKb := kbInfo.ModTime()
		dirInfo, err := os.Stat(dir.DirectoryPath)
		if err != nil {
			return time.Time{}, err
		}
		switch {
		case dirInfo.ModTime().After(tKb.Add(e.tolerance())):
			decision = e.directoryDecision(relPath, model.ReasonStructureChanged, "directory inode modified after KB file")
		case childFileNewer:
			decision = e.directoryDecision(relPath, model.ReasonSourceNewer, "a child file is newer than its cache entry and is being re-analyzed")
		case anySubdirNewer(childKBTimes, tKb, e.tolerance()):
			decision = e.directoryDecision(relPath, model.ReasonSubdirKBNewer, "a subdirectory KB file is newer than this KB file")
		case e.Mode == config.ModeFullKBRebuild:
			decision = e.directoryDecision(relPath, model.ReasonFullKBRebuildMode, "full_kb_rebuild mode forces rebuild")
		case e.Mode == config.ModeFull:
			decision = e.directoryDecision(relPath, model.ReasonFullMode, "full mode forces rebuild")
		default:
			decision = e.directoryDecision2(relPath, model.OutcomeSkip, model.ReasonUpToDate, "KB file is up to date")
		}
	}
	report.Decisions = append(report.Decisions, decision)

	if decision.Outcome == model.OutcomeSkip && decision.Reason == model.ReasonEmptyDirectory {
		return time.Time{}, nil
	}
	if decision.Outcome == model.OutcomeSkip {
		if kbExists {
			return kbInfo.ModTime(), nil
		}
		return time.Time{}, nil
	}
	// REBUILD: the new KB mtime will be "now" once the executor writes it;
	// callers evaluating staleness against this directory conservatively
	// treat a pending rebuild as newer than any prior snapshot.
	return time.Now(), nil
}

func anySubdirNewer(kbTimes []time.Time, tKb time.Time, tol time.Duration) bool {
	for _, t := range kbTimes {
		if t.After(tKb.Add(tol)) {
			return true
		}
	}
	return false
}

func (e *Engine) directoryDecision(path, reason, text string) model.Decision {
	return model.Decision{Path: path, Kind: model.DecisionDirectory, Outcome: model.OutcomeRebuild, Reason: reason, ReasoningText: text}
}

func (e *Engine) directoryDecision2(path string, outcome model.Outcome, reason, text string) model.Decision {
	return model.Decision{Path: path, Kind: model.DecisionDirectory, Outcome: outcome, Reason: reason, ReasoningText: text}
}

// evalFile applies the four-step per-file decision tree (spec.md §4.5)
// and reports whether the file counts as "newer" for Trigger B: true when
// the file is rebuilt this run because it has no cache entry or its source
// mtime is past the cache mtime plus tolerance. Neither mtime is compared
// against the parent KB file, and a cache entry already refreshed by an
// earlier run does not count.
func (e *Engine) evalFile(f *model.FileContext) (model.Decision, bool, error) {
	rel, err := filepath.Rel(e.SourceRoot, f.FilePath)
	if err != nil {
		rel = filepath.ToSlash(f.FilePath)
	}
	key := model.CacheKey{RelativePath: rel, Stage: model.StageFileAnalysis}

	_, cacheMtime, ok, err := e.Cache.Get(key)
	if err != nil {
		return model.Decision{}, false, err
	}

	var d model.Decision
	var sourceNewerThanCache bool
	switch {
	case !ok:
		d = model.Decision{Path: f.FilePath, Kind: model.DecisionFile, Outcome: model.OutcomeRebuild, Reason: model.ReasonCacheMissing, ReasoningText: "no cache entry"}
		sourceNewerThanCache = true
	case f.LastModified.After(cacheMtime.Add(e.tolerance())):
		d = model.Decision{Path: f.FilePath, Kind: model.DecisionFile, Outcome: model.OutcomeRebuild, Reason: model.ReasonSourceNewer, ReasoningText: "source file modified after cache entry"}
		sourceNewerThanCache = true
	case e.Mode == config.ModeFull:
		d = model.Decision{Path: f.FilePath, Kind: model.DecisionFile, Outcome: model.OutcomeRebuild, Reason: model.ReasonFullMode, ReasoningText: "full mode forces rebuild"}
	default:
		d = model.Decision{Path: f.FilePath, Kind: model.DecisionFile, Outcome: model.OutcomeSkip, Reason: model.ReasonUpToDate, ReasoningText: "cache entry is up to date"}
	}

	// A rebuild here means this run refreshes the cache entry; only a
	// rebuild caused by a missing or older cache entry counts for Trigger B,
	// a FULL_MODE rebuild does not.
	return d, d.Outcome == model.OutcomeRebuild && sourceNewerThanCache, nil
}

// findOrphans walks the cache and KB namespaces under the handler's
// subtree and emits DELETE decisions for entries whose source no longer
// exists (spec.md §4.5 "Orphans"). Orphan detection never crosses into
// another handler's namespace (invariant 1).
func (e *Engine) findOrphans(root *model.DirectoryContext) ([]model.Decision, error) {
	existing := make(map[string]struct{})
	collectExisting(root, existing)

	var orphans []model.Decision

	cacheRoot := filepath.Join(e.KnowledgeDir, e.Handler.HandlerType(), "cache")
	err := filepath.WalkDir(cacheRoot, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel := stripCacheSuffix(mustRel(cacheRoot, p))
		srcPath := filepath.Join(e.SourceRoot, rel)
		if _, ok := existing[srcPath]; !ok {
			orphans = append(orphans, model.Decision{Path: p, Kind: model.DecisionFile, Outcome: model.OutcomeDelete, Reason: model.ReasonOrphan, ReasoningText: "source file no longer exists"})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	kbOrphans, err := e.findOrphanedKBFiles(existing)
	if err != nil {
		return nil, err
	}
	orphans = append(orphans, kbOrphans...)

	sort.Slice(orphans, func(i, j int) bool { return orphans[i].Path < orphans[j].Path })
	return orphans, nil
}

// findOrphanedKBFiles walks the handler's KB namespace (derived from
// KnowledgePath's own root, so this stays handler-agnostic across
// project-base's "{knowledge_dir}/project_base/..." layout and
// git-clone's "{knowledge_dir}/git-clones/<repo>/..." layout) and emits
// DELETE decisions for any *_kb.md file whose source directory no longer
// exists (spec.md §4.5 "Orphans ... a KB file ... whose corresponding
// source path no longer exists").
func (e *Engine) findOrphanedKBFiles(existing map[string]struct{}) ([]model.Decision, error) {
	rootKBPath := e.Handler.KnowledgePath(e.KnowledgeDir, e.SourceRoot, e.SourceRoot)
	kbRoot := filepath.Dir(rootKBPath)

	var orphans []model.Decision
	err := filepath.WalkDir(kbRoot, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), "_kb.md") {
			return nil
		}
		if p == rootKBPath {
			return nil // the project root's KB file always has a source
		}
		relInKB, err := filepath.Rel(kbRoot, p)
		if err != nil {
			return nil
		}
		relDir := filepath.Dir(filepath.ToSlash(relInKB))
		srcDir := filepath.Join(e.SourceRoot, relDir)
		if _, ok := existing[srcDir]; !ok {
			orphans = append(orphans, model.Decision{Path: p, Kind: model.DecisionDirectory, Outcome: model.OutcomeDelete, Reason: model.ReasonOrphan, ReasoningText: "source directory no longer exists"})
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return orphans, nil
}

func collectExisting(dir *model.DirectoryContext, out map[string]struct{}) {
	out[dir.DirectoryPath] = struct{}{}
	for _, f := range dir.Files {
		out[f.FilePath] = struct{}{}
	}
	for _, sub := range dir.Subdirs {
		collectExisting(sub, out)
	}
}

func mustRel(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return rel
}

// stripCacheSuffix removes the trailing ".{stage}.md" cache-file suffix
// to recover the original relative source path.
func stripCacheSuffix(rel string) string {
	ext := filepath.Ext(rel) // ".md"
	rel = rel[:len(rel)-len(ext)]
	ext2 := filepath.Ext(rel) // ".{stage}"
	return rel[:len(rel)-len(ext2)]
}
