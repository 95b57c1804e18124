package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/harrison/tblogs/internal/config"
	"github.com/harrison/tblogs/internal/history"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the 'tblogs history' command
func NewHistoryCommand() *cobra.Command {
	var limit int
	var dbPath string
	var configPath string
	var totals bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent deletion attempts",
		Long: `Show runs deleted (or that failed to delete) by previous cleanup
sessions, newest first.

Examples:
  # Last 20 attempts
  tblogs history

  # Per-trainer totals
  tblogs history --totals`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, configPath, dbPath, limit, totals)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries to show (0 = all)")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to history database (default: from config)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: $TBLOGS_HOME/config.yaml)")
	cmd.Flags().BoolVar(&totals, "totals", false, "Show per-trainer totals instead of individual entries")

	return cmd
}

// runHistory executes the history command
func runHistory(cmd *cobra.Command, configPath, dbPathOverride string, limit int, totals bool) error {
	output := cmd.OutOrStdout()

	dbPath := dbPathOverride
	if dbPath == "" {
		cfg, _, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		dbPath = cfg.HistoryDB
	}
	if dbPath == "" {
		fmt.Fprintln(output, "History is disabled (history_db is empty)")
		return nil
	}

	// Check if database exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(output, "No history found at: %s\n", dbPath)
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if totals {
		rows, err := store.TotalsByTarget(ctx)
		if err != nil {
			return fmt.Errorf("query totals: %w", err)
		}
		printTotals(output, rows)
		return nil
	}

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}
	printEntries(output, entries)
	return nil
}

func printEntries(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No deletions recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "When\tTrainer\tRun\tSize\tResult")
	for _, e := range entries {
		result := color.GreenString("deleted")
		if !e.Success {
			result = color.RedString("failed: %s", e.Error)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\t%s\n",
			e.DeletedAt.Local().Format("2006-01-02 15:04"),
			e.Target,
			e.Dataset, e.RunName,
			humanize.IBytes(uint64(max(e.SizeBytes, 0))),
			result)
	}
	tw.Flush()
}

func printTotals(w io.Writer, rows []history.Totals) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No deletions recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Trainer\tRuns\tReclaimed\tFailures\tLast Sweep")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n",
			r.Target, r.Runs, humanize.IBytes(uint64(max(r.Bytes, 0))), r.Failures,
			humanize.Time(r.LastSweep))
	}
	tw.Flush()
}
