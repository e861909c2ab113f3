package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/lotwatch/internal/model"
)

// slotsResponse mirrors GET /api/slots. Pointer fields distinguish a missing
// field from a zero value.
type slotsResponse struct {
	Total *int       `json:"total"`
	Free  *int       `json:"free"`
	Slots []wireSlot `json:"slots"`
}

type wireSlot struct {
	ID        slotID  `json:"id"`
	Status    string  `json:"status"`
	SessionID *string `json:"session_id"`
}

// slotID accepts either a JSON number (the backend's integer primary key) or
// a string.
type slotID string

func (id *slotID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = slotID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("slot id must be a string or number: %w", err)
	}
	*id = slotID(n.String())
	return nil
}

// toSnapshot converts and validates a slots response.
func (r *slotsResponse) toSnapshot() (*model.FacilitySnapshot, error) {
	var missing []string
	if r.Total == nil {
		missing = append(missing, "total")
	}
	if r.Free == nil {
		missing = append(missing, "free")
	}
	if r.Slots == nil {
		missing = append(missing, "slots")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}

	snap := &model.FacilitySnapshot{
		TotalSlots: *r.Total,
		FreeSlots:  *r.Free,
		Slots:      make([]model.Slot, 0, len(r.Slots)),
	}
	for _, ws := range r.Slots {
		slot := model.Slot{
			ID:     string(ws.ID),
			Status: model.SlotStatus(strings.ToLower(ws.Status)),
		}
		if ws.SessionID != nil {
			slot.SessionID = *ws.SessionID
		}
		snap.Slots = append(snap.Slots, slot)
	}
	if err := model.ValidateSnapshot(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// tokenResponse mirrors GET /api/qr/{entry,exit}.
type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	URL       string `json:"url,omitempty"`
}

func (r *tokenResponse) toToken(purpose model.Purpose) (*model.Token, error) {
	if r.Token == "" {
		return nil, errors.New("missing required field: token")
	}
	if r.ExpiresAt == "" {
		return nil, errors.New("missing required field: expires_at")
	}
	expires, err := parseTimestamp(r.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("expires_at: %w", err)
	}
	return &model.Token{Value: r.Token, Purpose: purpose, ExpiresAt: expires}, nil
}

// Timestamps without a zone are what Python's naive isoformat() produces;
// they are read in local time, which is where the backend computed them.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
