package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/lotwatch/internal/client"
)

var adminCmd = &cobra.Command{
	Use:     "admin",
	Short:   "Operator overrides",
	GroupID: "admin",
}

var resetSlotsCmd = &cobra.Command{
	Use:   "reset-slots --total N",
	Short: "Reset the facility to N free slots",
	Long: `Reset the facility to N free slots.

Every existing slot, reservation and session is discarded. Without --yes the
command asks for confirmation.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		total, _ := cmd.Flags().GetInt("total")
		yes, _ := cmd.Flags().GetBool("yes")
		if total < 0 {
			return fmt.Errorf("--total must not be negative")
		}
		if !yes {
			prompt := fmt.Sprintf("Reset to %d slots? All reservations will be cleared.", total)
			if !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), prompt) {
				return fmt.Errorf("aborted")
			}
		}

		if err := facilityClient.SetSlots(cmd.Context(), total); err != nil {
			return err
		}
		logger.Info("slots reset", "total", total)

		snap, err := facilityClient.FetchSnapshot(cmd.Context())
		if err != nil {
			return fmt.Errorf("slots reset, but refreshing them failed: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), snap)
		}
		return printSlotsTable(cmd.OutOrStdout(), snap)
	},
}

var gateCmd = &cobra.Command{
	Use:       "gate <open|close>",
	Short:     "Open or close the barrier",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"open", "close"},
	RunE: func(cmd *cobra.Command, args []string) error {
		command := client.GateCommand(strings.ToLower(args[0]))
		if !command.IsValid() {
			return fmt.Errorf("unknown gate command %q (must be open or close)", args[0])
		}

		res, err := facilityClient.GateCommand(cmd.Context(), command)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		if !res.OK {
			reason := res.Reason
			if reason == "" {
				reason = "no reason given"
			}
			return fmt.Errorf("gate %s rejected: %s", command, reason)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "gate %s sent\n", command)
		return nil
	},
}

// confirm asks a yes/no question and reports whether the answer was yes.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func init() {
	resetSlotsCmd.Flags().Int("total", 0, "number of slots after the reset")
	resetSlotsCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
	_ = resetSlotsCmd.MarkFlagRequired("total")

	adminCmd.AddCommand(resetSlotsCmd)
	adminCmd.AddCommand(gateCmd)
}
