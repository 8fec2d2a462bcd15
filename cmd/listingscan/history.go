package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/listingscan/internal/config"
	"github.com/nao1215/listingscan/internal/database"
	"github.com/nao1215/listingscan/internal/model"
	"github.com/nao1215/listingscan/internal/report"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// It reads the runs recorded by scan from the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previous scan runs",
		Long: `History lists the runs recorded in the local database, newest first.

With --run it shows one run in full: its counters, skipped URLs and the
records it extracted. --export writes that run's CSV and JSON files again.

Examples:
  # List the latest runs of every site
  listingscan history

  # Only BestBuy runs, at most 5
  listingscan history --site bestbuy --limit 5

  # Show run 12 as Markdown
  listingscan history --run 12

  # Show run 12 as JSON
  listingscan history --run 12 --json

  # Write run 12's files to ./out
  listingscan history --run 12 --export out`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("site", "s", "",
		"Only list runs of this site (earth911 or bestbuy)")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 = all)")
	cmd.Flags().Int64P("run", "i", 0,
		"Show the run with this ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON instead of text")
	cmd.Flags().String("export", "",
		"With --run, write the run's CSV and JSON files to this directory")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	site      model.Site
	limit     int
	runID     int64
	json      bool
	exportDir string
	dbDir     string
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}

	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		return fmt.Errorf("no history found in %s (run 'listingscan scan' first): %w", opts.dbDir, err)
	}
	defer db.Close()

	return showHistory(cmd.Context(), cmd.OutOrStdout(), db, opts)
}

// parseHistoryFlags validates flags before the database is opened.
func parseHistoryFlags(cmd *cobra.Command) (historyOptions, error) {
	var opts historyOptions
	flags := cmd.Flags()

	siteName, err := flags.GetString("site")
	if err != nil {
		return opts, err
	}
	if siteName != "" {
		if opts.site, err = model.ParseSite(siteName); err != nil {
			return opts, err
		}
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.runID, err = flags.GetInt64("run"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.exportDir, err = flags.GetString("export"); err != nil {
		return opts, err
	}
	if opts.exportDir != "" && opts.runID == 0 {
		return opts, errors.New("--export requires --run")
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}
	if opts.dbDir == "" {
		opts.dbDir = config.XDGDataDir()
	}
	return opts, nil
}

// showHistory prints the run list or a single run.
func showHistory(ctx context.Context, out io.Writer, db *database.RecordDB, opts historyOptions) error {
	if opts.runID != 0 {
		return showRun(ctx, out, db, opts)
	}
	return listRuns(ctx, out, db, opts)
}

// listRuns prints a table of recent runs.
func listRuns(ctx context.Context, out io.Writer, db *database.RecordDB, opts historyOptions) error {
	runs, err := db.ListRuns(ctx, opts.site, opts.limit)
	if err != nil {
		return err
	}

	if opts.json {
		if runs == nil {
			runs = []database.RunSummary{}
		}
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(runs)
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found in the database.")
		fmt.Fprintln(out, "\nUse 'listingscan scan' to extract listings.")
		return nil
	}

	fmt.Fprintf(out, "Runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-9s  %-20s  %-8s  %-9s  %-8s  %s\n",
		"ID", "Site", "Started", "Records", "Discarded", "Skipped", "Status")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))
	for _, r := range runs {
		fmt.Fprintf(out, "  %-6d  %-9s  %-20s  %-8d  %-9d  %-8d  %s\n",
			r.ID,
			r.Site,
			r.StartedAt.Local().Format(time.DateTime),
			r.Stats.Succeeded,
			r.Stats.Discarded,
			r.Stats.Skipped,
			runStatus(r),
		)
	}
	fmt.Fprintln(out, "\nUse 'listingscan history --run <id>' to show a run's records.")
	return nil
}

// runStatus describes how a stored run ended.
func runStatus(r database.RunSummary) string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case r.Error != "":
		return "failed: " + truncate(r.Error, 40)
	default:
		return "complete"
	}
}

// truncate shortens s to n bytes with an ellipsis.
func truncate(s string, n int) string {
	if len(s) <= n || n <= 3 {
		return s
	}
	return s[:n-3] + "..."
}

// showRun prints or exports one stored run.
func showRun(ctx context.Context, out io.Writer, db *database.RecordDB, opts historyOptions) error {
	summary, err := db.GetRun(ctx, opts.runID)
	if err != nil {
		return err
	}
	records, err := db.GetRecords(ctx, summary.ID)
	if err != nil {
		return err
	}
	run := summary.Restore(records)

	if opts.exportDir != "" {
		paths, err := report.SaveFiles(opts.exportDir, run)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Fprintf(out, "Run %d has no records, nothing written.\n", run.ID)
		}
		for _, p := range paths {
			fmt.Fprintf(out, "Wrote %s\n", p)
		}
		return nil
	}

	if opts.json {
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(struct {
			Run     database.RunSummary `json:"run"`
			Records []model.Record      `json:"records"`
		}{summary, records})
		return err
	}

	_, err = report.NewMarkdownWriter(out).Write(run)
	return err
}
