// Package pathvar renders absolute filesystem paths as portable,
// root-relative strings (e.g. "{PROJECT_ROOT}/src/main.go") so that
// knowledge files remain stable across machines and checkouts. This is
// deliberately a thin, dependency-free helper: full cross-platform
// path-variable resolution is treated as an external collaborator by the
// core spec.
package pathvar

import (
	"path/filepath"
	"strings"
)

// ProjectRoot is the portable variable name used for a project-base or
// git-clone source root.
const ProjectRoot = "{PROJECT_ROOT}"

// Render rewrites an absolute path under root as "{PROJECT_ROOT}/rel",
// using forward slashes regardless of host OS. If path is not under root,
// it is returned unchanged.
func Render(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return ProjectRoot
	}
	return ProjectRoot + "/" + rel
}

// RenderDir is like Render but guarantees a trailing slash, matching the
// KB assembler's subdirectory subsection titles (spec.md §4.10 item 4).
func RenderDir(root, path string) string {
	r := Render(root, path)
	if !strings.HasSuffix(r, "/") {
		r += "/"
	}
	return r
}
