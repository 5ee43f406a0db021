package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/mockview/mockviewd/internal/session"
	"github.com/spf13/cobra"
)

func newExportCmd(app *appState) *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export <folder>",
		Short: "Export a session's transcripts to txt, csv, or json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := args[0]
			format = strings.ToLower(strings.TrimSpace(format))

			data, _, err := app.newStore().Export(folder, format)
			if err != nil {
				return err
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write export to %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported transcripts for %s to %s\n", folder, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "txt",
		fmt.Sprintf("Export format: %s", strings.Join(session.ExportFormats, "|")))
	cmd.Flags().StringVar(&output, "output", "", "Output file (default stdout)")
	return cmd
}
