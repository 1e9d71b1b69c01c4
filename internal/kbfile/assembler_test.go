package kbfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRender_OrdersFilesAndSubdirsCaseInsensitively(t *testing.T) {
	doc := Document{
		DirectoryPath: "/proj/src",
		SourceRoot:    "/proj",
		GlobalSummary: "Top level summary.",
		Files: []FileEntry{
			{Path: "/proj/src/zeta.go", Summary: "zeta summary"},
			{Path: "/proj/src/Alpha.go", Summary: "alpha summary"},
		},
		Subdirs: []SubdirEntry{
			{Path: "/proj/src/Zeta", Summary: "zeta dir summary"},
			{Path: "/proj/src/alpha", Summary: "alpha dir summary"},
		},
		KBOutputPath: "/proj/src/src_kb.md",
	}

	out := Render(doc, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	alphaFile := strings.Index(out, "Alpha.go")
	zetaFile := strings.Index(out, "zeta.go")
	if alphaFile == -1 || zetaFile == -1 || alphaFile > zetaFile {
		t.Errorf("File Knowledge Integration not case-insensitively sorted: Alpha.go@%d zeta.go@%d", alphaFile, zetaFile)
	}

	alphaDir := strings.Index(out, "alpha/")
	zetaDir := strings.Index(out, "Zeta/")
	if alphaDir == -1 || zetaDir == -1 || alphaDir > zetaDir {
		t.Errorf("Subdirectory Knowledge Integration not case-insensitively sorted: alpha/@%d Zeta/@%d", alphaDir, zetaDir)
	}
}

func TestRender_SixPartStructure(t *testing.T) {
	doc := Document{
		DirectoryPath: "/proj",
		SourceRoot:    "/proj",
		GlobalSummary: "Root summary.",
		KBOutputPath:  "/proj/root_kb.md",
	}

	out := Render(doc, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	for _, want := range []string{
		"AUTOGENERATED KNOWLEDGE FILE",
		"# {PROJECT_ROOT}/",
		"## Global Summary",
		"Root summary.",
		"## Subdirectory Knowledge Integration",
		"_No subdirectories._",
		"## File Knowledge Integration",
		"_No files._",
		"---",
		"Generated: 2026-01-01T00:00:00Z",
		"KB filename: root_kb.md",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered document missing %q\n--- got ---\n%s", want, out)
		}
	}
}

func TestRender_EmptySummaryUsesPlaceholder(t *testing.T) {
	doc := Document{
		DirectoryPath: "/proj",
		SourceRoot:    "/proj",
		GlobalSummary: "   ",
		KBOutputPath:  "/proj/root_kb.md",
	}

	out := Render(doc, time.Now())
	if !strings.Contains(out, noSummaryPlaceholder) {
		t.Errorf("expected placeholder %q for a blank summary", noSummaryPlaceholder)
	}
}

func TestRender_FileSummaryIsVerbatim(t *testing.T) {
	raw := "Line one.\n\n- bullet with *markdown*\n\n```go\nfunc f() {}\n```"
	doc := Document{
		DirectoryPath: "/proj",
		SourceRoot:    "/proj",
		Files:         []FileEntry{{Path: "/proj/f.go", Summary: raw}},
		KBOutputPath:  "/proj/root_kb.md",
	}

	out := Render(doc, time.Now())
	if !strings.Contains(out, raw) {
		t.Error("file summary was not inserted verbatim")
	}
}

func TestAssemble_WritesAtomicallyAndIsReadable(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "sub", "sub_kb.md")

	doc := Document{
		DirectoryPath: filepath.Join(dir, "sub"),
		SourceRoot:    dir,
		GlobalSummary: "summary",
		KBOutputPath:  target,
	}

	if err := Assemble(doc, time.Now()); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "summary") {
		t.Error("assembled file does not contain the expected summary")
	}

	entries, err := os.ReadDir(filepath.Dir(target))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries after Assemble, want exactly the final KB file: %v", len(entries), entries)
	}
}

func TestAssemble_OverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "root_kb.md")

	first := Document{DirectoryPath: dir, SourceRoot: dir, GlobalSummary: "first", KBOutputPath: target}
	if err := Assemble(first, time.Now()); err != nil {
		t.Fatal(err)
	}

	second := Document{DirectoryPath: dir, SourceRoot: dir, GlobalSummary: "second", KBOutputPath: target}
	if err := Assemble(second, time.Now()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "first") {
		t.Error("stale content from the first Assemble survived the second")
	}
	if !strings.Contains(string(data), "second") {
		t.Error("second Assemble's content is missing")
	}
}
