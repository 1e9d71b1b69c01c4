// Package discovery implements C4 from spec.md §4.3: walking a source
// tree via a Handler's exclusion predicate to build a DirectoryContext
// tree. Grounded in the teacher's directory-walk idiom
// (_examples/billie-coop-loco/internal/files/rules.go for the
// exclusion-predicate shape, generalized from a free function to a
// Handler method) combined with stdlib filepath.WalkDir.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/kbindex/indexer/internal/handler"
	"github.com/kbindex/indexer/internal/model"
)

// Walk produces a fully populated DirectoryContext tree rooted at
// sourcePath, per spec.md §4.3. maxFileSize bounds which files qualify
// for processing; oversized files are recorded as skipped with
// model.ReasonFileTooLarge but do not abort the walk (spec.md §4.3,
// §4.7's continue_on_file_errors intent).
func Walk(h handler.Handler, sourceRoot, sourcePath string, maxFileSize int64) (*model.DirectoryContext, error) {
	info, err := os.Lstat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("discovery: stat %s: %w", sourcePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("discovery: %s is not a directory", sourcePath)
	}
	return walkDir(h, sourceRoot, sourcePath, maxFileSize)
}

func walkDir(h handler.Handler, sourceRoot, dirPath string, maxFileSize int64) (*model.DirectoryContext, error) {
	ctx := &model.DirectoryContext{
		DirectoryPath:    dirPath,
		ProcessingStatus: model.StatusPending,
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("discovery: read dir %s: %w", dirPath, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		childPath := filepath.Join(dirPath, entry.Name())

		if h.ApplyExclusions(childPath) {
			continue
		}

		isDir := entry.IsDir()
		if entry.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(childPath)
			if err != nil {
				continue
			}
			rel, err := filepath.Rel(sourceRoot, target)
			if err != nil || len(rel) >= 2 && rel[:2] == ".." {
				continue // symlinks outside the source root are not followed
			}
			targetInfo, err := os.Stat(childPath)
			if err != nil {
				continue
			}
			isDir = targetInfo.IsDir()
		}

		if isDir {
			child, err := walkDir(h, sourceRoot, childPath, maxFileSize)
			if err != nil {
				return nil, err
			}
			ctx.Subdirs = append(ctx.Subdirs, child)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			if real, err := os.Stat(childPath); err == nil {
				info = real
			}
		}

		fc := &model.FileContext{
			FilePath:         childPath,
			FileSize:         info.Size(),
			LastModified:     info.ModTime(),
			ProcessingStatus: model.StatusPending,
		}
		if info.Size() > maxFileSize {
			fc.ProcessingStatus = model.StatusSkipped
			fc.ErrorMessage = string(model.ReasonFileTooLarge)
		}
		ctx.Files = append(ctx.Files, fc)
	}

	return ctx, nil
}
