package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for tblogs
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tblogs",
		Short: "TensorBoard run-log retention tool",
		Long: `tblogs lists the TensorBoard runs written by the LoRA and Router
trainers and lets you pick which ones to delete.

Runs are shown oldest first with their size, event file count and last
modification time. Selected runs are confirmed before anything is removed,
and the backing volume is committed once per trainer afterwards.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewCleanCommand())
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
