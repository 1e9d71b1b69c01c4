package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kbindex/indexer/internal/cache"
	"github.com/kbindex/indexer/internal/config"
	"github.com/kbindex/indexer/internal/decision"
	"github.com/kbindex/indexer/internal/discovery"
	"github.com/kbindex/indexer/internal/handler"
	"github.com/kbindex/indexer/internal/plan"
)

func newPlanCmd() *cobra.Command {
	var projectRoot string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Discover sources and print the task plan without executing it",
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

			h := handler.NewProjectBase(root, cfg.ContentFiltering)

			tree, err := discovery.Walk(h, root, root, cfg.FileProcessing.MaxFileSize)
			if err != nil {
				return err
			}

			cacheRoot := filepath.Join(knowledgeDir, h.HandlerType(), "cache")
			store := cache.New(cacheRoot)

			eng := decision.New(h, store, knowledgeDir, root, cfg.ChangeDetection.Mode, cfg.ChangeDetection.TimestampToleranceSeconds)
			report, err := eng.Evaluate(tree)
			if err != nil {
				return err
			}

			p := plan.Build(tree, report.Decisions, report.Orphans)

			for _, d := range report.Decisions {
				fmt.Printf("decision %-10s %-8s %-22s %s\n", d.Kind, d.Outcome, d.Reason, d.Path)
			}
			for _, d := range report.Orphans {
				fmt.Printf("decision %-10s %-8s %-22s %s\n", d.Kind, d.Outcome, d.Reason, d.Path)
			}
			fmt.Println()
			for _, t := range p.Tasks {
				fmt.Printf("task %s %-20s deps=%v %s\n", t.ID, t.Kind, t.DependsOn, t.Target)
			}
			fmt.Printf("\n%d tasks planned\n", len(p.Tasks))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectRoot, "root", "", "project root to plan (default: current directory)")
	return cmd
}
