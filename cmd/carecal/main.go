package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const defaultConfigPath = "carecal.yaml"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "carecal",
		Short: "Carecal: recurring care schedules and care tasks",
		Long: `Carecal projects recurring care events into calendars and promotes them
into persisted, completion-tracked care tasks for each care team.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSeriesCmd())
	cmd.AddCommand(newCalendarCmd())
	cmd.AddCommand(newTasksCmd())
	cmd.AddCommand(newShiftCmd())
	cmd.AddCommand(newMaterializeCmd())
	cmd.AddCommand(newCatchUpCmd())
	cmd.AddCommand(newTokenCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "carecal %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
