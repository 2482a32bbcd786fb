package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stayquote/internal/app/dto"
	calendarapp "stayquote/internal/app/handlers/calendar"
	quoteapp "stayquote/internal/app/handlers/quote"
	"stayquote/internal/app/queries"
	"stayquote/internal/domain/shared/daterange"
)

func quoteCmd(opts *options) *cobra.Command {
	var (
		from, to               string
		adults, children, pets int
		always                 bool
	)
	cmd := &cobra.Command{
		Use:   "quote <property-id>",
		Short: "Price a stay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, toDate, err := parseStay(from, to)
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			result, err := queries.Ask[quoteapp.GetQuoteQuery, dto.Quote](cmd.Context(), s.app.Queries, quoteapp.GetQuoteQuery{
				PropertyID:         args[0],
				TenantID:           opts.tenant,
				From:               fromDate,
				To:                 toDate,
				Adults:             adults,
				Children:           children,
				Pets:               pets,
				AlwaysIncludeQuote: always,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "arrival date")
	cmd.Flags().StringVar(&to, "to", "", "departure date")
	cmd.Flags().IntVar(&adults, "adults", 0, "adults")
	cmd.Flags().IntVar(&children, "children", 0, "children")
	cmd.Flags().IntVar(&pets, "pets", 0, "pets")
	cmd.Flags().BoolVar(&always, "always", false, "include the price even when the stay is not available")
	return cmd
}

func availabilityCmd(opts *options) *cobra.Command {
	var (
		from, to string
		guests   int
		exclude  []string
	)
	cmd := &cobra.Command{
		Use:   "availability <property-id>",
		Short: "Check a stay against every availability rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, toDate, err := parseStay(from, to)
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			result, err := queries.Ask[quoteapp.CheckAvailabilityQuery, dto.Availability](cmd.Context(), s.app.Queries, quoteapp.CheckAvailabilityQuery{
				PropertyID: args[0],
				TenantID:   opts.tenant,
				From:       fromDate,
				To:         toDate,
				Guests:     guests,
				Excluded:   exclude,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "arrival date")
	cmd.Flags().StringVar(&to, "to", "", "departure date")
	cmd.Flags().IntVar(&guests, "guests", 0, "total guests")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "reservation ids to ignore")
	return cmd
}

func calendarCmd(opts *options) *cobra.Command {
	var (
		from  string
		count int
	)
	cmd := &cobra.Command{
		Use:   "calendar <property-id>",
		Short: "Project daily availability and prices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fromDate time.Time
			if from != "" {
				d, err := daterange.ParseDate(from)
				if err != nil {
					return fmt.Errorf("--from: %w", err)
				}
				fromDate = d
			}
			s, err := openSession(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			result, err := queries.Ask[calendarapp.GetCalendarQuery, dto.Calendar](cmd.Context(), s.app.Queries, calendarapp.GetCalendarQuery{
				PropertyID: args[0],
				TenantID:   opts.tenant,
				From:       fromDate,
				Count:      count,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day (defaults to today)")
	cmd.Flags().IntVar(&count, "count", 0, "number of days (180 when zero)")
	return cmd
}

func parseStay(from, to string) (time.Time, time.Time, error) {
	var fromDate, toDate time.Time
	var err error
	if from != "" {
		if fromDate, err = daterange.ParseDate(from); err != nil {
			return fromDate, toDate, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if toDate, err = daterange.ParseDate(to); err != nil {
			return fromDate, toDate, fmt.Errorf("--to: %w", err)
		}
	}
	return fromDate, toDate, nil
}
