package cmd

import (
	"fmt"
	"time"

	"github.com/harrison/tblogs/internal/catalog"
	"github.com/harrison/tblogs/internal/display"
	"github.com/spf13/cobra"
)

// NewListCommand creates the 'tblogs list' command
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List TensorBoard runs without deleting anything",
		Long: `Scan each trainer's log tree and print its runs oldest first,
with the same indices 'tblogs clean' would show.`,
		Args: cobra.NoArgs,
		RunE: runList,
	}

	addTargetFlags(cmd)

	return cmd
}

// runList executes the list command
func runList(cmd *cobra.Command, args []string) error {
	if !checkTrainer(cmd) {
		return nil
	}
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	printer := display.NewPrinter(cmd.OutOrStdout(), env.color)
	scanner := catalog.NewScanner(env.log)
	now := time.Now()

	for _, name := range env.targets {
		tc, _ := env.cfg.Target(name)
		printer.Section(tc.Label)

		result := scanner.Scan(tc.Path)
		cat := result.Catalog()
		printer.Catalog(tc.Label, cat)
		if len(result.Warnings) > 0 {
			printer.Warning(display.WarnSkippedEntries(result.Warnings))
		}
		if cat.Len() > 0 {
			old := cat.Select(cat.OlderThan(now.Add(-env.cfg.OldAfter)))
			fmt.Fprintf(printer.Writer(), "Older than %s: %d runs, %s\n",
				display.FormatAge(env.cfg.OldAfter), len(old), display.FormatSize(catalog.SumBytes(old)))
		}
		printer.Blank()
	}

	return nil
}
