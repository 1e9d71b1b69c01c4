package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kbindex/indexer/internal/config"
	"github.com/kbindex/indexer/internal/handler"
	"github.com/kbindex/indexer/internal/llm"
	"github.com/kbindex/indexer/internal/llmdebug"
	"github.com/kbindex/indexer/internal/logx"
	"github.com/kbindex/indexer/internal/model"
	"github.com/kbindex/indexer/internal/run"
)

func newIndexCmd() *cobra.Command {
	var (
		projectRoot string
		onlyTag     string
		dryRun      bool
		mode        string
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Discover, decide, plan, and execute one indexing pass over a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot(projectRoot)
			if err != nil {
				return err
			}
			knowledgeDir := filepath.Join(root, ".knowledge")

			mgr := config.NewManager(knowledgeDir, "project_base")
			if err := mgr.Load(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cfg := mgr.Get()
			if dryRun {
				cfg.Debug.DryRun = true
			}
			if mode != "" {
				cfg.ChangeDetection.Mode = config.ChangeDetectionMode(mode)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			source := model.IndexableSource{
				SourceID:    "project-base:" + root,
				SourceType:  model.SourceProjectBase,
				SourcePath:  root,
				HandlerType: "project_base",
				Tags:        map[string]struct{}{"project_base": {}},
				Priority:    0,
				Enabled:     true,
			}
			if onlyTag != "" {
				filter := model.SourceFilter{RequireAnyTags: []string{onlyTag}}
				if !filter.Matches(source) {
					fmt.Printf("skipped: source %s does not match --only %q\n", source.DisplayName(), onlyTag)
					return nil
				}
			}

			reg := buildRegistry(root, knowledgeDir, cfg.ContentFiltering)

			client := selectClient(cfg.LLM)
			debug := llmdebug.New(cfg.Debug.DebugOutputDirectory, root)
			if cfg.Debug.DebugMode {
				if err := debug.WritePipelineStagesDoc(); err != nil {
					return err
				}
			}
			adapter := llm.NewAdapter(client, debug, cfg.Debug.EnableLLMReplay, cfg.Debug.DebugMode, cfg.LLM.Temperature, cfg.LLM.MaxTokens)

			status, err := run.Run(cmd.Context(), run.Options{
				KnowledgeDir: knowledgeDir,
				SourceRoot:   root,
				Registry:     reg,
				Config:       cfg,
				Adapter:      adapter,
				Log:          logx.Default,
			})
			if err != nil {
				return err
			}

			printSummary(status)
			return exitForStatus(status.Status)
		},
	}

	cmd.Flags().StringVar(&projectRoot, "root", "", "project root to index (default: current directory)")
	cmd.Flags().StringVar(&onlyTag, "only", "", "restrict to sources tagged with this value")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan only, perform no LLM calls or writes")
	cmd.Flags().StringVar(&mode, "mode", "", "override change_detection.mode (full, full_kb_rebuild, incremental)")

	return cmd
}

// buildRegistry assembles the Handler Registry for one CLI invocation
// (spec.md §4.2, C2): git-clone mirrors already present under
// "{knowledge_dir}/git-clones/" are registered first since CanHandle is
// tried in registration order and GitClone's match is the more specific
// one; ProjectBase is registered last as the catch-all for the project
// root itself.
func buildRegistry(root, knowledgeDir string, cf config.ContentFiltering) *handler.Registry {
	reg := handler.NewRegistry(logx.Default)

	cloneRoot := filepath.Join(knowledgeDir, "git-clones")
	entries, err := os.ReadDir(cloneRoot)
	if err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			reg.Register(handler.NewGitClone(cloneRoot, e.Name(), root, cf))
		}
	}

	reg.Register(handler.NewProjectBase(root, cf))
	return reg
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		return os.Getwd()
	}
	return filepath.Abs(root)
}

func selectClient(cfg config.LLMConfig) llm.Client {
	if cfg.Provider == "openai" {
		return llm.NewOpenAIClient(os.Getenv("OPENAI_API_KEY"), cfg.BaseURL, cfg.ModelID)
	}
	c := llm.NewLMStudioClient()
	return c
}

func printSummary(status *model.IndexingStatus) {
	fmt.Printf("status: %s\n", status.Status)
	fmt.Printf("files discovered=%d processed=%d completed=%d failed=%d skipped=%d\n",
		status.Stats.FilesDiscovered, status.Stats.FilesProcessed, status.Stats.FilesCompleted, status.Stats.FilesFailed, status.Stats.FilesSkipped)
	fmt.Printf("directories processed=%d llm_requests=%d total_bytes=%s\n",
		status.Stats.DirectoriesProcessed, status.Stats.LLMRequests, humanize.Bytes(uint64(status.Stats.TotalBytes)))
	for _, e := range status.Stats.Errors {
		fmt.Fprintln(os.Stderr, "error:", e)
	}
}

// exitForStatus maps IndexingStatus to the core's exit-code contract
// (spec.md §6.4): completed/skipped succeed, failed does not.
func exitForStatus(status model.RunStatus) error {
	switch status {
	case model.RunCompleted, model.RunSkipped:
		return nil
	default:
		return fmt.Errorf("run finished with status %s", status)
	}
}
