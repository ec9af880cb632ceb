package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/sitesnap/internal/config"
	"github.com/nao1215/sitesnap/internal/database"
	"github.com/spf13/cobra"
)

// historyDateLayout formats run timestamps in listings.
const historyDateLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
// This command lists crawl runs recorded in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [baseURL]",
		Short: "List recorded crawl runs",
		Long: `History lists the crawl runs recorded in the history database.

Without arguments it lists every crawled base URL. With a base URL it lists
that site's runs, newest first, with page counts and the number of saved
pages whose markup changed since the previous run.

Examples:
  # List all crawled sites
  sitesnap history

  # List the last 10 runs of a site
  sitesnap history --limit 10 https://example.com/

  # Show the pages of run 5
  sitesnap history --pages 5`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20,
		"Maximum number of runs to list (0 = all)")
	cmd.Flags().Int64P("pages", "p", 0,
		"Show the pages recorded by the run with this ID")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetInt64("pages")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case runID > 0:
		return showRunPages(ctx, out, db, runID)
	case len(args) == 1:
		return listRuns(ctx, out, db, args[0], limit)
	default:
		return listBaseURLs(ctx, out, db)
	}
}

// listBaseURLs lists every site with at least one recorded run.
func listBaseURLs(ctx context.Context, out io.Writer, db *database.CrawlDB) error {
	urls, err := db.ListBaseURLs(ctx)
	if err != nil {
		return err
	}

	if len(urls) == 0 {
		fmt.Fprintln(out, "No crawls recorded yet.")
		fmt.Fprintln(out, "\nUse 'sitesnap crawl <startURL>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Crawled sites (%d):\n\n", len(urls))
	for _, u := range urls {
		fmt.Fprintf(out, "  • %s\n", u)
	}
	fmt.Fprintln(out, "\nUse 'sitesnap history <baseURL>' to see the runs of a site.")
	return nil
}

// listRuns lists the runs of one base URL, newest first.
func listRuns(ctx context.Context, out io.Writer, db *database.CrawlDB, baseURL string, limit int) error {
	// One extra run is fetched so the oldest listed run has a predecessor.
	fetch := limit
	if limit > 0 {
		fetch = limit + 1
	}
	runs, err := db.ListRuns(ctx, baseURL, fetch)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs recorded for %s\n", baseURL)
		return nil
	}

	shown := runs
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	fmt.Fprintf(out, "Runs for %s (%d):\n\n", baseURL, len(shown))
	fmt.Fprintf(out, "  %-6s  %-20s  %6s  %6s  %7s  %6s  %7s\n",
		"ID", "Date", "Pages", "Saved", "Skipped", "Failed", "Changed")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))

	for i, r := range shown {
		changed := "-"
		if i+1 < len(runs) {
			urls, err := db.ChangedPages(ctx, runs[i+1].ID, r.ID)
			if err != nil {
				return err
			}
			changed = strconv.Itoa(len(urls))
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %6d  %6d  %7d  %6d  %7s\n",
			r.ID,
			r.CrawledAt.Local().Format(historyDateLayout),
			r.TotalPages,
			r.Saved,
			r.Skipped,
			r.Failed,
			changed,
		)
	}

	fmt.Fprintln(out, "\nUse 'sitesnap history --pages <id>' to see the pages of a run.")
	return nil
}

// showRunPages prints one run's pages as STATUS PATH lines.
func showRunPages(ctx context.Context, out io.Writer, db *database.CrawlDB, runID int64) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	pages, err := db.GetRunPages(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run %d: %s\n", run.ID, run.BaseURL)
	fmt.Fprintf(out, "Crawled: %s\n", run.CrawledAt.Local().Format(historyDateLayout))
	fmt.Fprintf(out, "Output:  %s\n\n", run.OutputDir)

	for _, p := range pages {
		line := fmt.Sprintf("  %-5s  %s", p.Status, p.Path)
		switch {
		case p.Error != "":
			line += "  (" + p.Error + ")"
		case p.Skipped != "":
			line += "  (" + p.Skipped + ")"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
