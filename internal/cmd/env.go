package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/harrison/tblogs/internal/config"
	"github.com/harrison/tblogs/internal/logger"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// environment is the resolved configuration shared by subcommands.
type environment struct {
	cfg     *config.Config
	home    string
	targets []string
	log     *logger.ConsoleLogger
	color   bool
}

// checkTrainer prints the usage message for an unknown --trainer value.
// An unknown trainer is reported, not treated as a failure.
func checkTrainer(cmd *cobra.Command) bool {
	trainer, _ := cmd.Flags().GetString("trainer")
	if _, err := config.ResolveTargets(trainer); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), err.Error())
		return false
	}
	return true
}

// loadEnvironment validates the trainer before touching the filesystem,
// then loads and validates configuration.
func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	trainer, _ := cmd.Flags().GetString("trainer")
	targets, err := config.ResolveTargets(trainer)
	if err != nil {
		return nil, err
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, home, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var logLevelPtr *string
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		level := f.Value.String()
		logLevelPtr = &level
	}
	var historyPtr *string
	if f := cmd.Flags().Lookup("db-path"); f != nil && f.Changed {
		dbPath := f.Value.String()
		historyPtr = &dbPath
	}
	if cmd.Flags().Changed("old-after") {
		oldAfter, _ := cmd.Flags().GetDuration("old-after")
		cfg.MergeWithFlags(logLevelPtr, &oldAfter, historyPtr)
	} else {
		cfg.MergeWithFlags(logLevelPtr, nil, historyPtr)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	return &environment{
		cfg:     cfg,
		home:    home,
		targets: targets,
		log:     logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel),
		color:   !noColor && colorEnabled(cmd.OutOrStdout()),
	}, nil
}

// colorEnabled reports whether w is an interactive terminal and NO_COLOR is unset.
func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// addTargetFlags registers the flags shared by commands that scan targets.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("trainer", config.TargetAll, "Trainer to operate on: lora, router, or all")
	cmd.Flags().String("config", "", "Path to config file (default: $TBLOGS_HOME/config.yaml)")
	cmd.Flags().String("log-level", "", "Diagnostic log level: trace, debug, info, warn, error")
	cmd.Flags().Duration("old-after", 0, "Age beyond which 'old' selects a run (e.g., 168h)")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
}
