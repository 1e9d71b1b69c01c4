package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kbindex/indexer/internal/config"
	"github.com/kbindex/indexer/internal/handler"
	"github.com/kbindex/indexer/internal/model"
)

func TestWalk_BuildsNestedTree(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "a.txt"), "a")
	mkdir(t, filepath.Join(root, "sub"))
	write(t, filepath.Join(root, "sub", "b.txt"), "b")

	h := handler.NewProjectBase(root, config.ContentFiltering{})
	tree, err := Walk(h, root, root, 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	if len(tree.Files) != 1 || tree.Files[0].FilePath != filepath.Join(root, "a.txt") {
		t.Fatalf("root.Files = %+v, want exactly a.txt", tree.Files)
	}
	if len(tree.Subdirs) != 1 || tree.Subdirs[0].DirectoryPath != filepath.Join(root, "sub") {
		t.Fatalf("root.Subdirs = %+v, want exactly sub/", tree.Subdirs)
	}
	if len(tree.Subdirs[0].Files) != 1 {
		t.Fatalf("sub.Files = %+v, want exactly b.txt", tree.Subdirs[0].Files)
	}
}

func TestWalk_ExcludedDirectoryIsPruned(t *testing.T) {
	root := t.TempDir()
	mkdir(t, filepath.Join(root, "node_modules"))
	write(t, filepath.Join(root, "node_modules", "lib.js"), "x")
	write(t, filepath.Join(root, "main.go"), "package main")

	h := handler.NewProjectBase(root, config.ContentFiltering{ExcludedDirectories: []string{"node_modules"}})
	tree, err := Walk(h, root, root, 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	if len(tree.Subdirs) != 0 {
		t.Errorf("expected node_modules to be pruned, got subdirs %+v", tree.Subdirs)
	}
	if len(tree.Files) != 1 {
		t.Errorf("expected exactly main.go, got %+v", tree.Files)
	}
}

func TestWalk_OversizedFileIsSkippedNotOmitted(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "big.bin"), "0123456789")

	h := handler.NewProjectBase(root, config.ContentFiltering{})
	tree, err := Walk(h, root, root, 5) // smaller than the 10-byte file
	if err != nil {
		t.Fatal(err)
	}

	if len(tree.Files) != 1 {
		t.Fatalf("expected the oversized file to still appear in the tree, got %+v", tree.Files)
	}
	f := tree.Files[0]
	if f.ProcessingStatus != model.StatusSkipped {
		t.Errorf("ProcessingStatus = %q, want %q", f.ProcessingStatus, model.StatusSkipped)
	}
	if f.ErrorMessage != string(model.ReasonFileTooLarge) {
		t.Errorf("ErrorMessage = %q, want %q", f.ErrorMessage, model.ReasonFileTooLarge)
	}
}

func TestWalk_FollowsSymlinkedDirectoryWithinRoot(t *testing.T) {
	root := t.TempDir()
	mkdir(t, filepath.Join(root, "real"))
	write(t, filepath.Join(root, "real", "f.txt"), "x")
	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}

	h := handler.NewProjectBase(root, config.ContentFiltering{})
	tree, err := Walk(h, root, root, 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	var linkDir *model.DirectoryContext
	for _, sub := range tree.Subdirs {
		if filepath.Base(sub.DirectoryPath) == "link" {
			linkDir = sub
		}
	}
	if linkDir == nil {
		t.Fatalf("symlinked directory %q was not classified as a directory: subdirs=%+v files=%+v", "link", tree.Subdirs, tree.Files)
	}
	if len(linkDir.Files) != 1 {
		t.Errorf("symlinked directory contents not walked: %+v", linkDir.Files)
	}
}

func TestWalk_SkipsSymlinkEscapingRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	write(t, filepath.Join(outside, "secret.txt"), "x")
	if err := os.Symlink(outside, filepath.Join(root, "escape")); err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}

	h := handler.NewProjectBase(root, config.ContentFiltering{})
	tree, err := Walk(h, root, root, 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	for _, sub := range tree.Subdirs {
		if filepath.Base(sub.DirectoryPath) == "escape" {
			t.Fatalf("symlink escaping the source root was followed: %+v", sub)
		}
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
}
