// Command kbindex drives the hierarchical knowledge-base indexing
// pipeline from the shell. Subcommand structure follows spf13/cobra, the
// CLI framework named in SPEC_FULL.md's DOMAIN STACK section — the
// teacher's own main.go (_examples/billie-coop-loco/main.go) is a
// single-command TUI entry point with hand-parsed flags, which doesn't
// generalize to this tool's multiple subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "kbindex",
		Short: "Hierarchical knowledge-base indexer",
	}

	root.AddCommand(newIndexCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newCleanCmd())
	root.AddCommand(newPreviewCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
