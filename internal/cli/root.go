package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the stayctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "stayctl",
		Short:         "Quote, calendar and iCal tooling over a fixture snapshot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.fixtures, "fixtures", "data/properties.json", "fixture snapshot file")
	root.PersistentFlags().StringVar(&opts.today, "today", "", "pin the current date (YYYY-MM-DD)")
	root.PersistentFlags().StringVar(&opts.tenant, "tenant", "", "tenant id checked against the property owner")

	icalCmd := &cobra.Command{Use: "ical", Short: "Import and export iCal calendars"}
	icalCmd.AddCommand(importCmd(opts), exportCmd(opts))

	root.AddCommand(
		quoteCmd(opts),
		availabilityCmd(opts),
		calendarCmd(opts),
		icalCmd,
	)
	return root
}
