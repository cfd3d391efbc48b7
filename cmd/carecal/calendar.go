package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/carecal/internal/calendar"
	"gorm.io/gorm"
)

type windowFlags struct {
	teams    []string
	start    string
	end      string
	critical bool
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.teams, "team", nil, "team id (repeatable, required)")
	cmd.Flags().StringVar(&f.start, "start", "", "window start (required)")
	cmd.Flags().StringVar(&f.end, "end", "", "window end; a plain date covers the whole day (required)")
	cmd.Flags().BoolVar(&f.critical, "critical", false, "only critical events")
	cmd.MarkFlagRequired("team")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
}

func (f *windowFlags) window() (time.Time, time.Time, error) {
	start, err := parseWhen(f.start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseWindowEnd(f.end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (f *windowFlags) project(gormDB *gorm.DB) ([]calendar.VirtualEvent, error) {
	start, end, err := f.window()
	if err != nil {
		return nil, err
	}
	return calendar.Project(gormDB, f.teams, start, end, f.critical)
}

func newCalendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Project recurring events into a calendar window",
	}

	cmd.AddCommand(newCalendarShowCmd())
	cmd.AddCommand(newCalendarExportCmd())
	return cmd
}

func newCalendarShowCmd() *cobra.Command {
	var (
		configPath string
		flags      windowFlags
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the projected events of a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			events, err := flags.project(gormDB)
			if err != nil {
				return err
			}
			printEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	flags.register(cmd)
	return cmd
}

func printEvents(out io.Writer, events []calendar.VirtualEvent) {
	if len(events) == 0 {
		fmt.Fprintln(out, "No events in window.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTEAM\tTITLE\tKIND\tSERIES\tMOVED FROM")
	for _, e := range events {
		moved := "-"
		if e.OriginalDate != nil && !e.OriginalDate.Equal(e.Date) {
			moved = formatWhen(*e.OriginalDate)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			formatWhen(e.Date), e.TeamID, truncate(e.Title, 40), e.Kind, e.EventMasterID, moved)
	}
	w.Flush()
}

func newCalendarExportCmd() *cobra.Command {
	var (
		configPath string
		output     string
		name       string
		flags      windowFlags
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the projected events of a window as iCalendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			events, err := flags.project(gormDB)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			if err := calendar.ExportICS(w, name, events, time.Now()); err != nil {
				return err
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d events to %s\n", len(events), output)
			}
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file (- for stdout)")
	cmd.Flags().StringVar(&name, "name", "carecal", "calendar name")
	return cmd
}
