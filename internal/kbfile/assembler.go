// Package kbfile implements C11 from spec.md §4.10: assembling one
// complete markdown knowledge file per directory, atomically. Generalizes
// the teacher's internal/knowledge.Manager
// (_examples/billie-coop-loco/internal/knowledge/manager.go), which
// writes a fixed set of four project-wide template files, into one
// assembler invocation per directory producing the spec's six-part
// document structure, with verbatim LLM content insertion (no template
// fill-in).
package kbfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kbindex/indexer/internal/pathvar"
)

// FileEntry is one in-scope file's contribution to the File Knowledge
// Integration section.
type FileEntry struct {
	Path    string // absolute
	Summary string // verbatim LLM output, or empty-file placeholder
}

// SubdirEntry is one in-scope subdirectory's contribution to the
// Subdirectory Knowledge Integration section.
type SubdirEntry struct {
	Path    string // absolute
	Summary string // verbatim subdirectory summary
}

// Document holds everything the Assembler needs to render one KB file.
type Document struct {
	DirectoryPath  string
	SourceRoot     string
	GlobalSummary  string
	Files          []FileEntry
	Subdirs        []SubdirEntry
	KBOutputPath   string
}

const noSummaryPlaceholder = "_No summary available._"

// Assemble renders doc into a complete markdown document and writes it
// atomically to doc.KBOutputPath (spec.md §4.10: "Writing is atomic:
// write to a sibling temp path, then rename over the target.").
func Assemble(doc Document, now time.Time) error {
	content := Render(doc, now)
	return writeAtomic(doc.KBOutputPath, content)
}

// Render produces the six-part markdown document described in spec.md
// §4.10, without touching the filesystem.
func Render(doc Document, now time.Time) string {
	var b strings.Builder

	// 1. autogenerated warning header.
	b.WriteString("<!-- AUTOGENERATED KNOWLEDGE FILE — DO NOT EDIT BY HAND. -->\n")
	b.WriteString("<!-- Regenerated by the indexing pipeline; manual edits will be overwritten. -->\n\n")

	// 2. top-level heading with a portable path variable.
	fmt.Fprintf(&b, "# %s\n\n", pathvar.RenderDir(doc.SourceRoot, doc.DirectoryPath))

	// 3. Global Summary.
	b.WriteString("## Global Summary\n\n")
	summary := strings.TrimSpace(doc.GlobalSummary)
	if summary == "" {
		summary = noSummaryPlaceholder
	}
	b.WriteString(summary)
	b.WriteString("\n\n")

	// 4. Subdirectory Knowledge Integration, case-insensitive alphabetical
	// by directory name.
	subdirs := append([]SubdirEntry{}, doc.Subdirs...)
	sort.Slice(subdirs, func(i, j int) bool {
		return strings.ToLower(filepath.Base(subdirs[i].Path)) < strings.ToLower(filepath.Base(subdirs[j].Path))
	})
	b.WriteString("## Subdirectory Knowledge Integration\n\n")
	if len(subdirs) == 0 {
		b.WriteString("_No subdirectories._\n\n")
	}
	for _, sd := range subdirs {
		fmt.Fprintf(&b, "### %s\n\n", pathvar.RenderDir(doc.SourceRoot, sd.Path))
		fmt.Fprintf(&b, "Last Updated: %s\n\n", now.UTC().Format(time.RFC3339))
		s := strings.TrimSpace(sd.Summary)
		if s == "" {
			s = noSummaryPlaceholder
		}
		b.WriteString(s)
		b.WriteString("\n\n")
	}

	// 5. File Knowledge Integration, case-insensitive alphabetical by file
	// name.
	files := append([]FileEntry{}, doc.Files...)
	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(files[i].Path)) < strings.ToLower(filepath.Base(files[j].Path))
	})
	b.WriteString("## File Knowledge Integration\n\n")
	if len(files) == 0 {
		b.WriteString("_No files._\n\n")
	}
	for _, f := range files {
		fmt.Fprintf(&b, "### %s\n\n", pathvar.Render(doc.SourceRoot, f.Path))
		fmt.Fprintf(&b, "Last Updated: %s\n\n", now.UTC().Format(time.RFC3339))
		s := strings.TrimSpace(f.Summary)
		if s == "" {
			s = noSummaryPlaceholder
		}
		b.WriteString(s)
		b.WriteString("\n\n")
	}

	// 6. metadata footer.
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Source directory: %s\n", pathvar.RenderDir(doc.SourceRoot, doc.DirectoryPath))
	fmt.Fprintf(&b, "Files: %d\n", len(files))
	fmt.Fprintf(&b, "Subdirectories: %d\n", len(subdirs))
	fmt.Fprintf(&b, "KB filename: %s\n", filepath.Base(doc.KBOutputPath))

	return b.String()
}

func writeAtomic(path string, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("kbfile: create %s: %w", filepath.Dir(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".kb-*.tmp")
	if err != nil {
		return fmt.Errorf("kbfile: create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("kbfile: write temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("kbfile: close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("kbfile: rename temp file into %s: %w", path, err)
	}
	return nil
}
