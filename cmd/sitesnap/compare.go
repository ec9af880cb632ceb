package main

import (
	"fmt"

	"github.com/nao1215/sitesnap/internal/config"
	"github.com/nao1215/sitesnap/internal/report"
	"github.com/spf13/cobra"
)

// NewCompareCmd creates the compare command.
// This command compares the manifests of two snapshot directories.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <dirA> <dirB>",
		Short: "Compare the manifests of two crawls",
		Long: `Compare loads manifest.json from two snapshot directories and shows:
- Pages found only in the first crawl
- Pages found only in the second crawl
- Pages whose HTTP status changed

Pages are matched by path, so a staging crawl can be compared with a
production crawl of the same site. Either argument may also be the path of a
manifest file.

Examples:
  # Compare a baseline with a new crawl
  sitesnap compare ./snapshots-baseline ./snapshots-current

  # Output the comparison as JSON
  sitesnap compare --format json ./snapshots-baseline ./snapshots-current`,
		Args: cobra.ExactArgs(2),
		RunE: runCompareCmd,
	}

	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Output format: text, json or markdown")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	// Resolve the writer first so a bad format fails before any file is read.
	w, err := report.New(format, cmd.OutOrStdout(), "")
	if err != nil {
		return err
	}

	a, b, err := report.LoadManifestPair(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to load manifests: %w", err)
	}

	if _, err := w.WriteDiff(report.Compare(a, b)); err != nil {
		return fmt.Errorf("failed to write comparison: %w", err)
	}
	return nil
}
