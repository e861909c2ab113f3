package events

import (
	"errors"
	"testing"

	"github.com/alfredjeanlab/lotwatch/internal/model"
)

func TestDecode_Taxonomy(t *testing.T) {
	tests := []struct {
		record string
		want   Event
	}{
		{`{"type": "slot_reserved", "slot": 1, "session": "abc"}`, SlotReserved{SlotID: "1", SessionID: "abc"}},
		{`{"type": "slotReserved", "slot": "A2"}`, SlotReserved{SlotID: "A2"}},
		{`{"type": "slot_occupied", "slot": 3}`, SlotOccupied{SlotID: "3"}},
		{`{"type": "slot_freed", "slot": 0}`, SlotFreed{SlotID: "0"}},
		{`{"type": "gate_opened"}`, GateOpened{}},
		{`{"type": "gateClosed"}`, GateClosed{}},
		{`{"type": "beam_entry", "state": "blocked"}`, BeamEntry{State: model.SensorBlocked}},
		{`{"type": "beam_exit", "state": "CLEAR"}`, BeamExit{State: model.SensorClear}},
	}
	for _, tt := range tests {
		got, err := Decode([]byte(tt.record))
		if err != nil {
			t.Errorf("Decode(%s) error = %v", tt.record, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Decode(%s) = %#v, want %#v", tt.record, got, tt.want)
		}
	}
}

func TestDecode_Unrecognized(t *testing.T) {
	ev, err := Decode([]byte(`{"type": "firmware_update", "version": 7}`))
	if err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	u, ok := ev.(Unrecognized)
	if !ok {
		t.Fatalf("got %T, want Unrecognized", ev)
	}
	if u.Type != "firmware_update" || u.Kind() != KindUnrecognized {
		t.Errorf("Unrecognized = %+v", u)
	}
	if string(u.Raw) != `{"type": "firmware_update", "version": 7}` {
		t.Errorf("Raw = %s", u.Raw)
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, record := range []string{
		`not json`,
		`{"slot": 1}`,
		`{"type": 5}`,
		`{"type": "beam_entry", "state": "half"}`,
		`{"type": "beam_exit"}`,
	} {
		_, err := Decode([]byte(record))
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%s) error = %v, want ErrMalformed", record, err)
		}
	}
}

func TestKind_AffectsSlots(t *testing.T) {
	for _, k := range []Kind{KindSlotReserved, KindSlotOccupied, KindSlotFreed} {
		if !k.AffectsSlots() {
			t.Errorf("%s.AffectsSlots() = false", k)
		}
	}
	for _, k := range []Kind{KindGateOpened, KindGateClosed, KindBeamEntry, KindBeamExit, KindUnrecognized} {
		if k.AffectsSlots() {
			t.Errorf("%s.AffectsSlots() = true", k)
		}
	}
}

func TestWireTypeAndSubject(t *testing.T) {
	if got := WireType(KindBeamEntry); got != "beam_entry" {
		t.Errorf("WireType(beamEntry) = %q", got)
	}
	if got := WireType(KindUnrecognized); got != "" {
		t.Errorf("WireType(unrecognized) = %q, want empty", got)
	}
	if got := SubjectFor("gate_opened"); got != "parking.gate_opened" {
		t.Errorf("SubjectFor = %q", got)
	}
	if got := SubjectFor(""); got != "parking.unknown" {
		t.Errorf("SubjectFor(\"\") = %q", got)
	}
}

func TestEncodeDecodes(t *testing.T) {
	for _, ev := range []Event{
		SlotReserved{SlotID: "7", SessionID: "abc"},
		SlotFreed{SlotID: "7"},
		GateClosed{},
		BeamExit{State: model.SensorClear},
	} {
		data, err := Encode(ev)
		if err != nil {
			t.Fatalf("Encode(%#v) error = %v", ev, err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode(%s) error = %v", data, err)
		}
		if got != ev {
			t.Errorf("Decode(Encode(%#v)) = %#v", ev, got)
		}
	}

	raw := []byte(`{"type":"payment_received","amount":3}`)
	data, err := Encode(Unrecognized{Type: "payment_received", Raw: raw})
	if err != nil || string(data) != string(raw) {
		t.Errorf("Encode(Unrecognized) = %s, %v, want raw record", data, err)
	}
}
