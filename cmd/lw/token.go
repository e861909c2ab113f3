package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/lotwatch/internal/model"
)

var tokenCmd = &cobra.Command{
	Use:       "token <entry|exit>",
	Short:     "Request a fresh entry or exit token",
	GroupID:   "facility",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"entry", "exit"},
	RunE: func(cmd *cobra.Command, args []string) error {
		purpose, ok := model.ParsePurpose(args[0])
		if !ok {
			return fmt.Errorf("unknown token purpose %q (must be entry or exit)", args[0])
		}
		claimBase, _ := cmd.Flags().GetString("claim-base")
		if claimBase == "" {
			claimBase = cfg.APIURL
		}

		tok, err := facilityClient.RequestToken(cmd.Context(), purpose)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), tokenJSON{Token: tok, Payload: tok.Payload(claimBase)})
		}
		printToken(cmd.OutOrStdout(), tok, claimBase, time.Now())
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("claim-base", "", "origin for entry claim URLs (default: the backend URL)")
}
