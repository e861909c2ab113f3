package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestSlotStatus_IsValid(t *testing.T) {
	for _, s := range []SlotStatus{SlotFree, SlotReserved, SlotOccupied} {
		if !s.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", s)
		}
	}
	for _, s := range []SlotStatus{"", "FREE", "broken"} {
		if s.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", s)
		}
	}
}

func TestFacilitySnapshot_CountFree(t *testing.T) {
	s := &FacilitySnapshot{Slots: []Slot{
		{ID: "1", Status: SlotFree},
		{ID: "2", Status: SlotReserved, SessionID: "abc"},
		{ID: "3", Status: SlotFree},
		{ID: "4", Status: SlotOccupied, SessionID: "def"},
	}}
	if got := s.CountFree(); got != 2 {
		t.Fatalf("CountFree() = %d, want 2", got)
	}
}

func TestFacilitySnapshot_CloneIsDeep(t *testing.T) {
	orig := &FacilitySnapshot{TotalSlots: 1, FreeSlots: 1, Slots: []Slot{{ID: "1", Status: SlotFree}}}
	cp := orig.Clone()
	cp.Slots[0].Status = SlotOccupied
	if orig.Slots[0].Status != SlotFree {
		t.Fatal("mutating clone changed the original")
	}

	var nilSnap *FacilitySnapshot
	if nilSnap.Clone() != nil {
		t.Fatal("Clone of nil snapshot should be nil")
	}
}

func TestNewCombinedState_UnknownUntilObserved(t *testing.T) {
	s := NewCombinedState()
	if s.Gate != GateUnknown {
		t.Errorf("Gate = %q, want unknown", s.Gate)
	}
	if s.Sensors.Entry != SensorUnknown || s.Sensors.Exit != SensorUnknown {
		t.Errorf("Sensors = %+v, want both unknown", s.Sensors)
	}
	if s.Connection != Disconnected {
		t.Errorf("Connection = %q, want disconnected", s.Connection)
	}
	if s.Snapshot != nil {
		t.Error("Snapshot should be nil before the first pull")
	}
}

func TestCombinedState_CloneCopiesTokens(t *testing.T) {
	s := NewCombinedState()
	s.Tokens.Entry = &Token{Value: "a", Purpose: PurposeEntry}
	cp := s.Clone()
	cp.Tokens.Entry.Value = "b"
	if s.Tokens.Entry.Value != "a" {
		t.Fatal("mutating cloned token changed the original")
	}
}

func TestToken_Expired(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	tok := &Token{ExpiresAt: now.Add(time.Second)}
	if tok.Expired(now) {
		t.Error("token expiring in 1s reported expired")
	}
	if !tok.Expired(now.Add(time.Second)) {
		t.Error("token should be expired exactly at ExpiresAt")
	}
	if got := tok.Remaining(now.Add(time.Hour)); got != 0 {
		t.Errorf("Remaining after expiry = %v, want 0", got)
	}
}

func TestToken_Payload(t *testing.T) {
	entry := &Token{Value: "tok-1", Purpose: PurposeEntry}
	got := entry.Payload("http://lot.local:8000/")
	want := "http://lot.local:8000/pwa/claim.html?t=tok-1&type=entry"
	if got != want {
		t.Errorf("entry payload = %q, want %q", got, want)
	}

	exit := &Token{Value: "tok-2", Purpose: PurposeExit}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(exit.Payload("ignored")), &decoded); err != nil {
		t.Fatalf("exit payload is not JSON: %v", err)
	}
	if decoded["t"] != "tok-2" || decoded["type"] != "exit" {
		t.Errorf("exit payload = %v", decoded)
	}
}

func TestParsePurpose(t *testing.T) {
	if p, ok := ParsePurpose(" Exit "); !ok || p != PurposeExit {
		t.Errorf("ParsePurpose(Exit) = %q, %v", p, ok)
	}
	if _, ok := ParsePurpose("lobby"); ok {
		t.Error("ParsePurpose(lobby) should fail")
	}
}

func TestValidateSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		snap    *FacilitySnapshot
		wantErr string
	}{
		{
			name: "valid",
			snap: &FacilitySnapshot{TotalSlots: 2, FreeSlots: 1, Slots: []Slot{
				{ID: "1", Status: SlotFree},
				{ID: "2", Status: SlotOccupied, SessionID: "s"},
			}},
		},
		{
			name: "empty facility",
			snap: &FacilitySnapshot{},
		},
		{
			name:    "nil",
			snap:    nil,
			wantErr: "snapshot: is required",
		},
		{
			name:    "free exceeds total",
			snap:    &FacilitySnapshot{TotalSlots: 1, FreeSlots: 2, Slots: []Slot{{ID: "1", Status: SlotFree}}},
			wantErr: "free: must be between 0 and 1",
		},
		{
			name:    "free disagrees with slots",
			snap:    &FacilitySnapshot{TotalSlots: 2, FreeSlots: 2, Slots: []Slot{{ID: "1", Status: SlotFree}, {ID: "2", Status: SlotReserved, SessionID: "x"}}},
			wantErr: "free: is 2 but 1 slots are free",
		},
		{
			name:    "duplicate id",
			snap:    &FacilitySnapshot{TotalSlots: 2, FreeSlots: 2, Slots: []Slot{{ID: "1", Status: SlotFree}, {ID: "1", Status: SlotFree}}},
			wantErr: `duplicate id "1"`,
		},
		{
			name:    "reserved without session",
			snap:    &FacilitySnapshot{TotalSlots: 1, FreeSlots: 0, Slots: []Slot{{ID: "1", Status: SlotReserved}}},
			wantErr: "session_id: is required for a reserved slot",
		},
		{
			name:    "unknown status",
			snap:    &FacilitySnapshot{TotalSlots: 1, FreeSlots: 0, Slots: []Slot{{ID: "1", Status: "broken"}}},
			wantErr: `invalid value "broken"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSnapshot(tt.snap)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateSnapshot() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateSnapshot() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("ValidateSnapshot() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
