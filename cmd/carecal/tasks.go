package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/carecal/internal/activity"
	"github.com/zulandar/carecal/internal/caretask"
	"github.com/zulandar/carecal/internal/models"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Care task commands",
	}

	cmd.AddCommand(newTasksListCmd())
	cmd.AddCommand(newTasksCreateCmd())
	cmd.AddCommand(newTasksDoneCmd())
	cmd.AddCommand(newTasksUndoCmd())
	cmd.AddCommand(newTasksDetailsCmd())
	cmd.AddCommand(newTasksHistoryCmd())
	return cmd
}

func newTasksListCmd() *cobra.Command {
	var (
		configPath string
		flags      windowFlags
		notDone    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted and upcoming care tasks",
		Long: `Lists the care tasks of a window. Tasks past a team's materialization
cursor are not persisted yet; they are shown with a "~" in place of an id.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := flags.window()
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			entries, err := caretask.List(gormDB, caretask.ListOpts{
				TeamIDs:      flags.teams,
				Start:        start,
				End:          end,
				OnlyCritical: flags.critical,
				OnlyNotDone:  notDone,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No care tasks in window.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tTEAM\tTITLE\tKIND\tDONE\tBY")
			for _, e := range entries {
				if e.Task == nil {
					v := e.Virtual
					fmt.Fprintf(w, "~\t%s\t%s\t%s\t%s\t-\t-\n",
						formatWhen(v.Date), v.TeamID, truncate(v.Title, 40), v.Kind)
					continue
				}
				t := e.Task
				by := "-"
				if t.DoneByUserID != nil {
					by = *t.DoneByUserID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					t.ID, formatWhen(t.Date), t.TeamID, truncate(t.Title, 40), t.Kind, formatOptional(t.DoneAt), by)
			}
			return w.Flush()
		},
	}

	addConfigFlag(cmd, &configPath)
	flags.register(cmd)
	cmd.Flags().BoolVar(&notDone, "not-done", false, "only persisted tasks that are not done")
	return cmd
}

func newTasksCreateCmd() *cobra.Command {
	var (
		configPath  string
		user        string
		team        string
		title       string
		description string
		kind        string
		date        string
		shiftID     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an ad hoc care task",
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseWhen(date)
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			task, err := caretask.Create(gormDB, caretask.CreateOpts{
				TeamID:      team,
				Title:       title,
				Description: description,
				Kind:        models.EventKind(kind),
				Date:        when,
				CreatedBy:   user,
				ShiftID:     shiftID,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created care task %s: %s at %s\n", task.ID, task.Title, formatWhen(task.Date))
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	addUserFlag(cmd, &user)
	cmd.Flags().StringVar(&team, "team", "", "team id (required)")
	cmd.Flags().StringVar(&title, "title", "", "task title (required)")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&kind, "kind", string(models.KindNormal), "task kind (normal, critical)")
	cmd.Flags().StringVar(&date, "date", "", "when the task is due (required)")
	cmd.Flags().StringVar(&shiftID, "shift", "", "shift the task belongs to")
	cmd.MarkFlagRequired("team")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("date")
	return cmd
}

func newTasksDoneCmd() *cobra.Command {
	return newTasksSetDoneCmd("done", "Mark a care task done", true)
}

func newTasksUndoCmd() *cobra.Command {
	return newTasksSetDoneCmd("undo", "Mark a care task not done", false)
}

func newTasksSetDoneCmd(use, short string, done bool) *cobra.Command {
	var (
		configPath string
		user       string
	)

	cmd := &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			task, err := caretask.SetDone(gormDB, args[0], user, done)
			if err != nil {
				return err
			}
			if task.IsDone() {
				fmt.Fprintf(cmd.OutOrStdout(), "Care task %s done by %s at %s\n", task.ID, *task.DoneByUserID, formatWhen(*task.DoneAt))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Care task %s is not done\n", task.ID)
			}
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	addUserFlag(cmd, &user)
	return cmd
}

func newTasksDetailsCmd() *cobra.Command {
	var (
		configPath string
		user       string
	)

	cmd := &cobra.Command{
		Use:   "details <task-id> <details>",
		Short: "Replace the free-form details of a care task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			task, err := caretask.UpdateDetails(gormDB, args[0], user, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated details of care task %s\n", task.ID)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	addUserFlag(cmd, &user)
	return cmd
}

func newTasksHistoryCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history <task-id>",
		Short: "Show the activity log of a care task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			logs, err := activity.List(gormDB, args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(logs) == 0 {
				fmt.Fprintln(out, "No activity.")
				return nil
			}
			for i := range logs {
				diff, err := activity.Decode(&logs[i])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  %s\n", formatWhen(logs[i].CreatedAt), logs[i].UserID)
				for _, field := range activity.Fields(diff) {
					fmt.Fprintf(out, "  %s: %v -> %v\n", field, diff[field].Before, diff[field].After)
				}
			}
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show")
	return cmd
}
