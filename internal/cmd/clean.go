package cmd

import (
	"fmt"

	"github.com/harrison/tblogs/internal/cleanup"
	"github.com/harrison/tblogs/internal/display"
	"github.com/harrison/tblogs/internal/history"
	"github.com/harrison/tblogs/internal/logger"
	"github.com/harrison/tblogs/internal/metrics"
	"github.com/harrison/tblogs/internal/report"
	"github.com/harrison/tblogs/internal/volume"
	"github.com/spf13/cobra"
)

// NewCleanCommand creates the 'tblogs clean' command
func NewCleanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Select and delete TensorBoard runs",
		Long: `Scan each trainer's log tree, list its runs oldest first, and delete
the runs you select after confirmation.

Selection syntax:
  0 2 5     individual indices
  0-5       an inclusive range
  all       every listed run
  old       runs last modified more than 7 days ago (see --old-after)
  (empty)   cancel

Examples:
  # Clean both trainers interactively
  tblogs clean

  # Clean only the LoRA trainer
  tblogs clean --trainer lora

  # Preview what 'old' would remove without deleting
  tblogs clean --select old --dry-run

  # Unattended sweep of stale runs, with an HTML report
  tblogs clean --select old --yes --report sweep.html`,
		Args: cobra.NoArgs,
		RunE: runClean,
	}

	addTargetFlags(cmd)
	cmd.Flags().String("select", "", "Selection expression to use instead of prompting")
	cmd.Flags().Bool("yes", false, "Skip the confirmation prompt (the plan is still printed)")
	cmd.Flags().Bool("dry-run", false, "Show what would be deleted without deleting anything")
	cmd.Flags().String("report", "", "Write a session report to this file (.md, or .html)")
	cmd.Flags().String("db-path", "", "Path to history database (overrides config; empty disables)")

	return cmd
}

// runClean executes the clean command
func runClean(cmd *cobra.Command, args []string) error {
	if !checkTrainer(cmd) {
		return nil
	}
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	output := cmd.OutOrStdout()
	printer := display.NewPrinter(output, env.color)
	prompter := cleanup.NewLinePrompter(cmd.InOrStdin(), output)

	opts := cleanup.Options{
		OldAfter: env.cfg.OldAfter,
		LockDir:  env.cfg.LockDir,
	}
	opts.AssumeYes, _ = cmd.Flags().GetBool("yes")
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
	if cmd.Flags().Changed("select") {
		sel, _ := cmd.Flags().GetString("select")
		opts.Selection = &sel
	}

	var log cleanup.Logger = env.log
	if env.cfg.LogDir != "" && !opts.DryRun {
		fileLog, err := logger.NewFileLogger(env.cfg.LogDir, env.cfg.LogLevel)
		if err != nil {
			env.log.LogWarn(fmt.Sprintf("session log disabled: %v", err))
		} else {
			defer fileLog.Close()
			log = logger.NewMultiLogger(env.log, fileLog)
		}
	}

	session := cleanup.NewSession(printer, prompter, log, opts)

	if env.cfg.HistoryDB != "" && !opts.DryRun {
		store, err := history.NewStore(env.cfg.HistoryDB)
		if err != nil {
			// The audit log is best effort; cleanup still proceeds
			log.LogWarn(fmt.Sprintf("history disabled: %v", err))
		} else {
			defer store.Close()
			session.History = store
		}
	}

	if env.cfg.MetricsTextfile != "" {
		session.Metrics = metrics.NewMetrics()
	}

	targets := make([]cleanup.Target, 0, len(env.targets))
	for _, name := range env.targets {
		tc, _ := env.cfg.Target(name)
		targets = append(targets, cleanup.Target{
			Name:   name,
			Label:  tc.Label,
			Path:   tc.Path,
			Volume: volume.New(name, tc.CommitCommand),
		})
	}

	log.LogInfo(fmt.Sprintf("session %s started: targets %v", session.ID, env.targets))
	summary, runErr := session.Run(cmd.Context(), targets)

	if session.Metrics != nil {
		if err := session.Metrics.WriteTextfile(env.cfg.MetricsTextfile); err != nil {
			log.LogWarn(err.Error())
		}
	}

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" && summary != nil {
		if err := report.Write(reportPath, summary); err != nil {
			log.LogError(err.Error())
		} else {
			fmt.Fprintf(output, "Report written to %s\n", reportPath)
		}
	}

	if summary != nil {
		log.LogInfo(fmt.Sprintf("session %s finished: %d deleted, %d failed",
			session.ID, summary.TotalDeleted(), summary.TotalFailures()))
	}
	return runErr
}
