package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"stayquote/internal/app/commands"
	"stayquote/internal/app/dto"
	"stayquote/internal/app/handlers/icalsync"
	"stayquote/internal/app/queries"
	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/shared/daterange"
)

type importedEvent struct {
	UID     string `json:"uid"`
	Summary string `json:"summary"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type importReport struct {
	CalendarID string            `json:"calendarId"`
	Sync       *dto.CalendarSync `json:"sync"`
	Events     []importedEvent   `json:"events"`
}

func importCmd(opts *options) *cobra.Command {
	var calendarID, name string
	cmd := &cobra.Command{
		Use:   "import <property-id> <file.ics>",
		Short: "Import an .ics file into a property's external calendar",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			s, err := openSession(ctx, opts, fileFetcher{path: path})
			if err != nil {
				return err
			}
			if calendarID == "" {
				registered, err := commands.Dispatch[icalsync.RegisterCalendarCommand, *dto.ExternalCalendar](ctx, s.app.Commands, icalsync.RegisterCalendarCommand{
					PropertyID: args[0],
					TenantID:   opts.tenant,
					Name:       name,
					URL:        "file://" + filepath.ToSlash(path),
				})
				if err != nil {
					return err
				}
				calendarID = registered.ID
			}
			result, err := commands.Dispatch[icalsync.SyncCalendarCommand, *dto.CalendarSync](ctx, s.app.Commands, icalsync.SyncCalendarCommand{
				PropertyID: args[0],
				TenantID:   opts.tenant,
				CalendarID: calendarID,
			})
			if err != nil {
				return err
			}
			stored, err := s.store.Events.ListByCalendar(ctx, ical.CalendarID(calendarID))
			if err != nil {
				return err
			}
			report := importReport{CalendarID: calendarID, Sync: result, Events: make([]importedEvent, 0, len(stored))}
			for _, ev := range stored {
				report.Events = append(report.Events, importedEvent{
					UID:     ev.UID,
					Summary: ev.Summary,
					Start:   daterange.Format(ev.Range.CheckIn),
					End:     daterange.Format(ev.Range.CheckOut),
				})
			}
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("import failed: %s", result.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&calendarID, "calendar", "", "existing external calendar id (a new one is registered when empty)")
	cmd.Flags().StringVar(&name, "name", "Imported calendar", "name of a newly registered calendar")
	return cmd
}

func exportCmd(opts *options) *cobra.Command {
	var (
		merge bool
		out   string
	)
	cmd := &cobra.Command{
		Use:   "export <property-id>",
		Short: "Render a property's busy periods as iCal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			result, err := queries.Ask[icalsync.ExportCalendarQuery, dto.CalendarExport](cmd.Context(), s.app.Queries, icalsync.ExportCalendarQuery{
				PropertyID: args[0],
				TenantID:   opts.tenant,
				Merge:      merge,
			})
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(result.Body)
				return err
			}
			return os.WriteFile(out, result.Body, 0o644)
		},
	}
	cmd.Flags().BoolVar(&merge, "merge", false, "merge overlapping periods into single events")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout when empty)")
	return cmd
}
