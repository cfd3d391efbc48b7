package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/carecal/internal/shift"
)

func newShiftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shift",
		Short: "Caregiver shift commands",
	}

	cmd.AddCommand(newShiftStartCmd())
	cmd.AddCommand(newShiftEndCmd())
	cmd.AddCommand(newShiftCurrentCmd())
	cmd.AddCommand(newShiftUnlockCmd())
	return cmd
}

func newShiftStartCmd() *cobra.Command {
	var (
		configPath string
		user       string
		team       string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Check a caregiver in and materialize the upcoming care tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			started, err := shift.Start(gormDB, shift.StartOpts{
				TeamID:      team,
				CaregiverID: user,
				Lookahead:   cfg.Materialize.ShiftLookahead,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Started shift %s for %s on team %s\n", started.Shift.ID, user, team)
			fmt.Fprintf(out, "Materialized %d care tasks (cursor %s)\n",
				started.Materialize.Inserted, formatOptional(started.Materialize.Cursor))
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	addUserFlag(cmd, &user)
	cmd.Flags().StringVar(&team, "team", "", "team id (required)")
	cmd.MarkFlagRequired("team")
	return cmd
}

func newShiftEndCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "end <shift-id>",
		Short: "Check a shift out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			s, err := shift.End(gormDB, args[0], time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ended shift %s at %s\n", s.ID, formatOptional(s.CheckedOutAt))
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newShiftCurrentCmd() *cobra.Command {
	var (
		configPath string
		team       string
	)

	cmd := &cobra.Command{
		Use:   "current",
		Short: "Show the team's active shift",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			s, err := shift.Current(gormDB, team)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Shift %s: %s since %s\n", s.ID, s.CaregiverID, formatWhen(s.CheckedInAt))
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&team, "team", "", "team id (required)")
	cmd.MarkFlagRequired("team")
	return cmd
}

func newShiftUnlockCmd() *cobra.Command {
	var (
		configPath string
		team       string
		until      string
	)

	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Materialize care tasks ahead of schedule for the active shift",
		Long: `Materializes the team's care tasks up to --until on behalf of the active
shift. Fails if the team has no active shift or if --until is not past the
team's cursor.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			end, err := parseWindowEnd(until)
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			res, err := shift.Unlock(gormDB, team, end, time.Now())
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
	cmd.Flags().StringVar(&until, "until", "", "materialize up to here (required)")
	cmd.MarkFlagRequired("team")
	cmd.MarkFlagRequired("until")
	return cmd
}
