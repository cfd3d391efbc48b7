package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/carecal/internal/caretask"
	"github.com/zulandar/carecal/internal/daemon"
)

func newMaterializeCmd() *cobra.Command {
	var (
		configPath string
		team       string
		start      string
		end        string
	)

	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Persist a team's care tasks for a window past its cursor",
		Long: `Persists a care task for every projected event of the team in the
window that lies after the team's materialization cursor, then moves the
cursor to --end. Fails if --end is not past the cursor.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseWhen(start)
			if err != nil {
				return err
			}
			until, err := parseWindowEnd(end)
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			res, err := caretask.MaterializeUntil(gormDB, team, from, until, caretask.MaterializeOpts{})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Materialized %d care tasks for team %s (cursor %s)\n",
				res.Inserted, res.TeamID, formatOptional(res.Cursor))
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&team, "team", "", "team id (required)")
	cmd.Flags().StringVar(&start, "start", "", "window start (required)")
	cmd.Flags().StringVar(&end, "end", "", "window end (required)")
	cmd.MarkFlagRequired("team")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func newCatchUpCmd() *cobra.Command {
	var (
		configPath string
		horizon    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "catchup",
		Short: "Run one catch-up pass for every team",
		Long:  "Materializes every team's care tasks up to now plus the horizon (materialize.horizon by default).",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if horizon <= 0 {
				horizon = cfg.Materialize.Horizon
			}
			log, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			results, runErr := daemon.RunOnce(gormDB, time.Now(), horizon, log)

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TEAM\tINSERTED\tCURSOR")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%d\t%s\n", r.TeamID, r.Inserted, formatOptional(r.Cursor))
			}
			w.Flush()
			return runErr
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().DurationVar(&horizon, "horizon", 0, "look-ahead (overrides materialize.horizon)")
	return cmd
}
