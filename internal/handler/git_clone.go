package handler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kbindex/indexer/internal/config"
)

// GitClone handles a mirrored repository tree under
// "{knowledge_dir}/git-clones/<repo-name>/..." (spec.md §4.2, §6.1). It
// applies only the shared base exclusions — no project-base-only rules.
type GitClone struct {
	Base
	CloneRoot string // "{knowledge_dir}/git-clones"
	RepoName  string
	Source    string // the working copy this mirror was cloned from
}

// NewGitClone builds a GitClone handler for one cloned repository.
func NewGitClone(cloneRoot, repoName, source string, cfg config.ContentFiltering) *GitClone {
	return &GitClone{Base: NewBase(cfg), CloneRoot: cloneRoot, RepoName: repoName, Source: source}
}

func (h *GitClone) HandlerType() string { return "git_clone" }

// CanHandle reports whether sourcePath lies under this handler's clone
// root and the immediate repo subdirectory looks like a repository
// (spec.md §4.2: "a git-clone ... lies under {knowledge_root}/git-clones/
// and the immediate subdirectory looks like a repository (contains a
// .git/ child directory)").
func (h *GitClone) CanHandle(sourcePath string) bool {
	repoDir := filepath.Join(h.CloneRoot, h.RepoName)
	rel, err := filepath.Rel(repoDir, sourcePath)
	if err != nil {
		return false
	}
	if rel != "." && strings.HasPrefix(rel, "..") {
		return false
	}
	info, err := os.Stat(filepath.Join(repoDir, ".git"))
	return err == nil && info.IsDir()
}

func (h *GitClone) KnowledgePath(knowledgeDir, sourceRoot, targetPath string) string {
	repoDir := filepath.Join(h.CloneRoot, h.RepoName)
	rel, err := filepath.Rel(repoDir, targetPath)
	if err != nil || rel == "." {
		return filepath.Join(h.CloneRoot, h.RepoName, "root_kb.md")
	}
	return filepath.Join(h.CloneRoot, h.RepoName, rel, kbFileName(targetPath))
}

func (h *GitClone) CachePath(knowledgeDir, sourceRoot, targetPath, stage string) string {
	repoDir := filepath.Join(h.CloneRoot, h.RepoName)
	rel, err := filepath.Rel(repoDir, targetPath)
	if err != nil {
		rel = filepath.ToSlash(targetPath)
	}
	return filepath.Join(knowledgeDir, h.HandlerType(), "cache", h.RepoName, cacheFileName(rel, stage))
}

func (h *GitClone) ApplyExclusions(candidatePath string) bool {
	return h.Base.excluded(candidatePath)
}
