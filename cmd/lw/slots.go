package main

import (
	"github.com/spf13/cobra"
)

var slotsCmd = &cobra.Command{
	Use:     "slots",
	Short:   "Show the current slot snapshot",
	GroupID: "facility",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := facilityClient.FetchSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), snap)
		}
		return printSlotsTable(cmd.OutOrStdout(), snap)
	},
}
