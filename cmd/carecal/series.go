package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/carecal/internal/models"
	"github.com/zulandar/carecal/internal/recurrence"
	"github.com/zulandar/carecal/internal/series"
)

func newSeriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Recurring event series commands",
	}

	cmd.AddCommand(newSeriesCreateCmd())
	cmd.AddCommand(newSeriesListCmd())
	cmd.AddCommand(newSeriesShowCmd())
	cmd.AddCommand(newSeriesEditCmd())
	cmd.AddCommand(newSeriesCancelCmd())
	return cmd
}

func newSeriesCreateCmd() *cobra.Command {
	var (
		configPath  string
		user        string
		team        string
		title       string
		description string
		kind        string
		rrule       string
		start       string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a recurring event series",
		Example: `  carecal series create --team ward-3 --title "Insulin" \
    --rrule "FREQ=DAILY;INTERVAL=1" --start "2026-01-01 08:00" --kind critical`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := recurrence.Parse(rrule)
			if err != nil {
				return err
			}
			dateStart, err := parseWhen(start)
			if err != nil {
				return err
			}
			return runSeriesCreate(cmd, configPath, series.CreateOpts{
				TeamID:      team,
				Title:       title,
				Description: description,
				Kind:        models.EventKind(kind),
				Rule:        rule,
				DateStart:   dateStart,
				CreatedBy:   user,
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	addUserFlag(cmd, &user)
	cmd.Flags().StringVar(&team, "team", "", "team id (required)")
	cmd.Flags().StringVar(&title, "title", "", "event title (required)")
	cmd.Flags().StringVar(&description, "description", "", "event description")
	cmd.Flags().StringVar(&kind, "kind", string(models.KindNormal), "event kind (normal, critical)")
	cmd.Flags().StringVar(&rrule, "rrule", "", "RFC 5545 rule, e.g. FREQ=WEEKLY;BYDAY=MO,TH (required)")
	cmd.Flags().StringVar(&start, "start", "", "first occurrence (required)")
	cmd.MarkFlagRequired("team")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("rrule")
	cmd.MarkFlagRequired("start")
	return cmd
}

func runSeriesCreate(cmd *cobra.Command, configPath string, opts series.CreateOpts) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	m, err := series.Create(gormDB, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created series %s: %s (%s from %s)\n", m.ID, m.Title, m.RRule, formatWhen(m.DateStart))
	return nil
}

func newSeriesListCmd() *cobra.Command {
	var (
		configPath string
		teams      []string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the series of one or more teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			masters, err := series.List(gormDB, teams)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(masters) == 0 {
				fmt.Fprintln(out, "No series found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTEAM\tTITLE\tKIND\tRULE\tSTART\tUNTIL")
			for _, m := range masters {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					m.ID, m.TeamID, truncate(m.Title, 40), m.Kind, m.RRule,
					formatWhen(m.DateStart), formatOptional(m.DateUntil))
			}
			return w.Flush()
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringSliceVar(&teams, "team", nil, "team id (repeatable, required)")
	cmd.MarkFlagRequired("team")
	return cmd
}

func newSeriesShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <series-id>",
		Short: "Show a series with its exceptions and cancellations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			m, err := series.Get(gormDB, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Series:      %s\n", m.ID)
			fmt.Fprintf(out, "Team:        %s\n", m.TeamID)
			fmt.Fprintf(out, "Title:       %s\n", m.Title)
			fmt.Fprintf(out, "Kind:        %s\n", m.Kind)
			fmt.Fprintf(out, "Rule:        %s\n", m.RRule)
			fmt.Fprintf(out, "Start:       %s\n", formatWhen(m.DateStart))
			fmt.Fprintf(out, "Until:       %s\n", formatOptional(m.DateUntil))
			if m.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", m.Description)
			}
			if len(m.Exceptions) > 0 {
				fmt.Fprintln(out, "\nExceptions:")
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "  ID\tORIGINAL\tNEW\tTITLE\tKIND")
				for _, ex := range m.Exceptions {
					fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", ex.ID,
						formatWhen(ex.OriginalDate), formatWhen(ex.NewDate),
						ex.Title.Resolve("(inherit)"), ex.Kind.Resolve("(inherit)"))
				}
				w.Flush()
			}
			if len(m.Cancellations) > 0 {
				fmt.Fprintln(out, "\nCancelled:")
				for _, c := range m.Cancellations {
					fmt.Fprintf(out, "  %s\n", formatWhen(c.OriginalDate))
				}
			}
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newSeriesEditCmd() *cobra.Command {
	var (
		configPath  string
		user        string
		scope       string
		exceptionID string
		date        string
		title       string
		description string
		kind        string
		newDate     string
		rrule       string
	)

	cmd := &cobra.Command{
		Use:   "edit <series-id>",
		Short: "Edit one occurrence, this and future occurrences, or a whole series",
		Long: `Edits a series. --scope selects what changes:

  single           the occurrence on --date (or the exception --exception)
  this_and_future  the occurrence on --date and every later one
  all              the whole series

Only the fields whose flags are given are changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := series.EditRequest{
				Scope:         series.Scope(scope),
				EventMasterID: args[0],
				ExceptionID:   exceptionID,
				UserID:        user,
			}
			var err error
			if date != "" {
				if req.Date, err = parseWhen(date); err != nil {
					return err
				}
			}
			flags := cmd.Flags()
			if flags.Changed("title") {
				req.Title = &title
			}
			if flags.Changed("description") {
				req.Description = &description
			}
			if flags.Changed("kind") {
				k := models.EventKind(kind)
				req.Kind = &k
			}
			if newDate != "" {
				t, err := parseWhen(newDate)
				if err != nil {
					return err
				}
				req.NewDate = &t
			}
			if rrule != "" {
				rule, err := recurrence.Parse(rrule)
				if err != nil {
					return err
				}
				req.Rule = &rule
			}
			return runSeriesEdit(cmd, configPath, req)
		},
	}

	addConfigFlag(cmd, &configPath)
	addUserFlag(cmd, &user)
	cmd.Flags().StringVar(&scope, "scope", string(series.ScopeSingle), "single, this_and_future or all")
	cmd.Flags().StringVar(&exceptionID, "exception", "", "target an existing exception by id")
	cmd.Flags().StringVar(&date, "date", "", "occurrence to edit")
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&kind, "kind", "", "new kind (normal, critical)")
	cmd.Flags().StringVar(&newDate, "move-to", "", "move the occurrence (or the series start) here")
	cmd.Flags().StringVar(&rrule, "rrule", "", "new recurrence rule")
	return cmd
}

func runSeriesEdit(cmd *cobra.Command, configPath string, req series.EditRequest) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	res, err := series.Edit(gormDB, req)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch {
	case res.ExceptionID != "":
		fmt.Fprintf(out, "Saved exception %s on series %s\n", res.ExceptionID, res.EventMasterID)
	case res.Split:
		fmt.Fprintf(out, "Split series %s: future occurrences now belong to %s\n", req.EventMasterID, res.EventMasterID)
	default:
		fmt.Fprintf(out, "Updated series %s\n", res.EventMasterID)
	}
	return nil
}

func newSeriesCancelCmd() *cobra.Command {
	var (
		configPath  string
		scope       string
		exceptionID string
		date        string
	)

	cmd := &cobra.Command{
		Use:   "cancel <series-id>",
		Short: "Cancel one occurrence, this and future occurrences, or a whole series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := series.CancelRequest{
				Scope:         series.Scope(scope),
				EventMasterID: args[0],
				ExceptionID:   exceptionID,
			}
			if date != "" {
				t, err := parseWhen(date)
				if err != nil {
					return err
				}
				req.Date = t
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := series.Cancel(gormDB, req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled (%s) on series %s\n", req.Scope, req.EventMasterID)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&scope, "scope", string(series.ScopeSingle), "single, this_and_future or all")
	cmd.Flags().StringVar(&exceptionID, "exception", "", "target an existing exception by id")
	cmd.Flags().StringVar(&date, "date", "", "occurrence to cancel")
	return cmd
}
