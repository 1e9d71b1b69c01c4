package handler

import (
	"path/filepath"

	"github.com/kbindex/indexer/internal/config"
)

// ProjectBase handles the top-level project tree being indexed (spec.md
// §4.2 variant "project-base"). It additionally excludes the pipeline's
// own working directories so a run never re-indexes its own output.
type ProjectBase struct {
	Base
	SourceRoot string
}

// NewProjectBase builds a ProjectBase handler rooted at sourceRoot, with
// exclusions from cfg plus the mandatory project-base-only exclusions
// (spec.md §4.2: "project-base additionally excludes .knowledge,
// .coding_assistant, .clinerules").
func NewProjectBase(sourceRoot string, cfg config.ContentFiltering) *ProjectBase {
	b := NewBase(cfg)
	extra := cfg.ProjectBaseExclusions
	if len(extra) == 0 {
		extra = []string{".knowledge", ".coding_assistant", ".clinerules"}
	}
	b.ExcludedDirectories = append(append([]string{}, b.ExcludedDirectories...), extra...)
	return &ProjectBase{Base: b, SourceRoot: sourceRoot}
}

func (h *ProjectBase) HandlerType() string { return "project_base" }

func (h *ProjectBase) CanHandle(sourcePath string) bool {
	rel, err := filepath.Rel(h.SourceRoot, sourcePath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !hasDotDotPrefix(rel))
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 2 && rel[:2] == ".." && (len(rel) == 2 || rel[2] == filepath.Separator)
}

func (h *ProjectBase) KnowledgePath(knowledgeDir, sourceRoot, targetPath string) string {
	base := filepath.Join(knowledgeDir, h.HandlerType())
	rel, err := filepath.Rel(sourceRoot, targetPath)
	if err != nil || rel == "." {
		return filepath.Join(base, "root_kb.md")
	}
	return filepath.Join(base, rel, kbFileName(targetPath))
}

func (h *ProjectBase) CachePath(knowledgeDir, sourceRoot, targetPath, stage string) string {
	rel, err := filepath.Rel(sourceRoot, targetPath)
	if err != nil {
		rel = filepath.ToSlash(targetPath)
	}
	return filepath.Join(knowledgeDir, h.HandlerType(), "cache", cacheFileName(rel, stage))
}

func (h *ProjectBase) ApplyExclusions(candidatePath string) bool {
	return h.Base.excluded(candidatePath)
}
