package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour/v2"
	"github.com/spf13/cobra"
)

// newPreviewCmd renders a generated knowledge-base file to the terminal,
// grounded in the teacher's chat-message renderer
// (_examples/billie-coop-loco/internal/chat/messages.go's
// glamour.NewTermRenderer with WithStylePath("dracula")).
func newPreviewCmd() *cobra.Command {
	var width int

	cmd := &cobra.Command{
		Use:   "preview <kb-file>",
		Short: "Render an assembled knowledge-base markdown file to the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			r, err := glamour.NewTermRenderer(
				glamour.WithStylePath("dracula"),
				glamour.WithWordWrap(width),
				glamour.WithPreservedNewLines(),
			)
			if err != nil {
				return fmt.Errorf("preview: building renderer: %w", err)
			}

			out, err := r.Render(string(data))
			if err != nil {
				return fmt.Errorf("preview: rendering %s: %w", args[0], err)
			}

			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 100, "word-wrap width for rendering")
	return cmd
}
