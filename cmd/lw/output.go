package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/lotwatch/internal/model"
	"github.com/alfredjeanlab/lotwatch/internal/render"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printSlotsTable(w io.Writer, s *model.FacilitySnapshot) error {
	fmt.Fprintf(w, "Free: %d of %d\n\n", s.FreeSlots, s.TotalSlots)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tSTATUS\tSESSION")
	for _, slot := range s.Slots {
		session := slot.SessionID
		if session == "" {
			session = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", slot.ID, slot.Status, session)
	}
	return tw.Flush()
}

func printToken(w io.Writer, tok *model.Token, claimBase string, now time.Time) {
	fmt.Fprintf(w, "Purpose:  %s\n", tok.Purpose)
	fmt.Fprintf(w, "Token:    %s\n", tok.Value)
	fmt.Fprintf(w, "Expires:  %s (%s)\n", tok.ExpiresAt.Local().Format("15:04:05"), render.Token(tok, now, claimBase))
	fmt.Fprintf(w, "Payload:  %s\n", tok.Payload(claimBase))
}

// tokenJSON is the --json shape of a token, including its QR payload.
type tokenJSON struct {
	*model.Token
	Payload string `json:"payload"`
}
