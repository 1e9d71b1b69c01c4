// Package handler implements C2 (Registry) and C3 (Handler) from spec.md
// §4.2: pluggable strategy objects, one per source type, that own a
// subtree of the filesystem and of the knowledge directory. Exclusion
// rules are grounded in the teacher's internal/files.IsIndexable/
// ShouldIgnore (_examples/billie-coop-loco/internal/files/rules.go),
// generalized from a single hardcoded list into per-handler-type,
// config-driven exclusions with glob support via bmatcuk/doublestar.
package handler

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kbindex/indexer/internal/config"
)

// Handler is the C3 contract every source-type variant implements
// (spec.md §4.2).
type Handler interface {
	// HandlerType returns this handler's stable type tag, e.g.
	// "project_base", "git_clone", "pdf".
	HandlerType() string

	// CanHandle reports whether this handler owns sourcePath.
	CanHandle(sourcePath string) bool

	// KnowledgePath returns the absolute KB-file path this handler would
	// produce for targetPath under sourceRoot.
	KnowledgePath(knowledgeDir, sourceRoot, targetPath string) string

	// CachePath returns the absolute cache-entry path for targetPath at
	// the given pipeline stage.
	CachePath(knowledgeDir, sourceRoot, targetPath, stage string) string

	// ApplyExclusions is the handler-specific predicate: true means
	// candidatePath is excluded from processing.
	ApplyExclusions(candidatePath string) bool
}

// Base holds the exclusion rules shared by every handler variant
// (spec.md §4.2: "Base exclusions ... apply to all"), generalizing the
// teacher's hardcoded ignoredDirs/ignoredExts/ignoredPatterns
// (_examples/billie-coop-loco/internal/files/rules.go) into
// config.ContentFiltering-driven lists plus doublestar glob patterns.
type Base struct {
	ExcludedDirectories []string
	ExcludedExtensions  []string
	GlobPatterns        []string
}

// NewBase builds a Base from a loaded Config's content-filtering group.
func NewBase(cf config.ContentFiltering) Base {
	return Base{
		ExcludedDirectories: cf.ExcludedDirectories,
		ExcludedExtensions:  cf.ExcludedExtensions,
		GlobPatterns:        cf.ExcludedGlobs,
	}
}

// excluded implements the shared predicate: directory-component match,
// extension match, or glob-pattern match.
func (b Base) excluded(candidatePath string) bool {
	clean := filepath.ToSlash(filepath.Clean(candidatePath))
	parts := strings.Split(clean, "/")
	for _, part := range parts {
		for _, dir := range b.ExcludedDirectories {
			if part == dir {
				return true
			}
		}
	}
	ext := strings.ToLower(filepath.Ext(candidatePath))
	for _, e := range b.ExcludedExtensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	for _, pat := range b.GlobPatterns {
		if ok, _ := doublestar.Match(pat, clean); ok {
			return true
		}
	}
	return false
}

func kbFileName(dirPath string) string {
	name := filepath.Base(dirPath)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "root"
	}
	return name + "_kb.md"
}

func cacheFileName(relPath, stage string) string {
	return relPath + "." + stage + ".md"
}
