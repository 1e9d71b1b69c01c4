package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbindex/indexer/internal/config"
)

// newCleanCmd implements the cleanup-mode preprocessing step (SPEC_FULL.md
// §9(c)): wipe previously generated knowledge-base files and/or cached
// analysis output before the next run, rather than relying on the Decision
// Engine to notice they are gone. Scoped at the CLI layer, one handler
// type at a time, per the Open Questions resolution recorded in
// DESIGN.md.
func newCleanCmd() *cobra.Command {
	var (
		projectRoot string
		wipeKB      bool
		wipeCache   bool
		handlerType string
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove generated knowledge-base files and/or cached analysis output",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot(projectRoot)
			if err != nil {
				return err
			}
			knowledgeDir := filepath.Join(root, ".knowledge")

			mgr := config.NewManager(knowledgeDir, handlerType)
			if err := mgr.Load(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cfg := mgr.Get()

			if !wipeKB && !wipeCache {
				for _, t := range cfg.Cleanup.CleanupTypes {
					switch t {
					case config.CleanupKBFiles:
						wipeKB = true
					case config.CleanupAnalysisFiles:
						wipeCache = true
					}
				}
			}
			if !wipeKB && !wipeCache {
				fmt.Println("nothing to clean: pass --wipe-kb and/or --wipe-cache, or set cleanup_config in the config file")
				return nil
			}

			handlerDir := filepath.Join(knowledgeDir, handlerType)

			if wipeKB {
				n, err := removeMatching(handlerDir, func(name string) bool {
					return strings.HasSuffix(name, "_kb.md")
				})
				if err != nil {
					return err
				}
				fmt.Printf("removed %d knowledge-base file(s)\n", n)
			}

			if wipeCache {
				cacheRoot := filepath.Join(handlerDir, "cache")
				if err := os.RemoveAll(cacheRoot); err != nil && !os.IsNotExist(err) {
					return err
				}
				fmt.Println("removed cached analysis output")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&projectRoot, "root", "", "project root to clean (default: current directory)")
	cmd.Flags().BoolVar(&wipeKB, "wipe-kb", false, "delete all generated *_kb.md files")
	cmd.Flags().BoolVar(&wipeCache, "wipe-cache", false, "delete the cached analysis directory")
	cmd.Flags().StringVar(&handlerType, "handler-type", "project_base", "handler type whose knowledge output to clean")

	return cmd
}

func removeMatching(root string, match func(name string) bool) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if match(d.Name()) {
			if err := os.Remove(path); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil && os.IsNotExist(err) {
		return count, nil
	}
	return count, err
}
