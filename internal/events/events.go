// Package events defines the push-event taxonomy delivered by the backend's
// event stream and the NATS transport used to fan those events out.
package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/lotwatch/internal/model"
)

// SubjectPrefix is the NATS subject namespace for relayed parking events.
// Subscribe to SubjectPrefix + ">" for everything.
const SubjectPrefix = "parking."

// Kind identifies an event in the taxonomy.
type Kind string

const (
	KindSlotReserved Kind = "slotReserved"
	KindSlotOccupied Kind = "slotOccupied"
	KindSlotFreed    Kind = "slotFreed"
	KindGateOpened   Kind = "gateOpened"
	KindGateClosed   Kind = "gateClosed"
	KindBeamEntry    Kind = "beamEntry"
	KindBeamExit     Kind = "beamExit"
	KindUnrecognized Kind = "unrecognized"
)

// wireTypes maps the backend's snake_case record types to kinds.
var wireTypes = map[string]Kind{
	"slot_reserved": KindSlotReserved,
	"slot_occupied": KindSlotOccupied,
	"slot_freed":    KindSlotFreed,
	"gate_opened":   KindGateOpened,
	"gate_closed":   KindGateClosed,
	"beam_entry":    KindBeamEntry,
	"beam_exit":     KindBeamExit,
}

// Event is one push notification. The concrete types below are the only
// implementations.
type Event interface {
	Kind() Kind
}

// Slot events carry informational payloads only; they never hold enough data
// to update the slot list.
type SlotReserved struct {
	SlotID    string `json:"slot"`
	SessionID string `json:"session,omitempty"`
}

type SlotOccupied struct {
	SlotID string `json:"slot"`
}

type SlotFreed struct {
	SlotID string `json:"slot"`
}

type GateOpened struct{}

type GateClosed struct{}

type BeamEntry struct {
	State model.SensorState `json:"state"`
}

type BeamExit struct {
	State model.SensorState `json:"state"`
}

// Unrecognized preserves a record whose type is not in the taxonomy.
type Unrecognized struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"raw"`
}

func (SlotReserved) Kind() Kind { return KindSlotReserved }
func (SlotOccupied) Kind() Kind { return KindSlotOccupied }
func (SlotFreed) Kind() Kind    { return KindSlotFreed }
func (GateOpened) Kind() Kind   { return KindGateOpened }
func (GateClosed) Kind() Kind   { return KindGateClosed }
func (BeamEntry) Kind() Kind    { return KindBeamEntry }
func (BeamExit) Kind() Kind     { return KindBeamExit }
func (Unrecognized) Kind() Kind { return KindUnrecognized }

// AffectsSlots reports whether events of kind k change slot occupancy.
func (k Kind) AffectsSlots() bool {
	return k == KindSlotReserved || k == KindSlotOccupied || k == KindSlotFreed
}

// ErrMalformed is wrapped by Decode for records that are not a JSON object
// with a string "type" field, or whose payload does not fit the type.
var ErrMalformed = errors.New("malformed event record")

// envelope is the common shape of every record: {"type": "...", ...fields}.
type envelope struct {
	Type    string  `json:"type"`
	Slot    flexID  `json:"slot"`
	Session *string `json:"session"`
	State   string  `json:"state"`
}

// Decode parses one record. Both the backend's snake_case types and the
// camelCase kind names are accepted. Unknown types decode to Unrecognized
// without error.
func Decode(data []byte) (Event, error) {
	data = bytes.TrimSpace(data)
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	kind, ok := wireTypes[env.Type]
	if !ok {
		kind = Kind(env.Type)
	}

	switch kind {
	case KindSlotReserved:
		ev := SlotReserved{SlotID: string(env.Slot)}
		if env.Session != nil {
			ev.SessionID = *env.Session
		}
		return ev, nil
	case KindSlotOccupied:
		return SlotOccupied{SlotID: string(env.Slot)}, nil
	case KindSlotFreed:
		return SlotFreed{SlotID: string(env.Slot)}, nil
	case KindGateOpened:
		return GateOpened{}, nil
	case KindGateClosed:
		return GateClosed{}, nil
	case KindBeamEntry, KindBeamExit:
		state := model.SensorState(strings.ToLower(env.State))
		if !state.IsValid() {
			return nil, fmt.Errorf("%w: %s has invalid state %q", ErrMalformed, env.Type, env.State)
		}
		if kind == KindBeamEntry {
			return BeamEntry{State: state}, nil
		}
		return BeamExit{State: state}, nil
	}

	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return Unrecognized{Type: env.Type, Raw: raw}, nil
}

// WireType returns the backend record type for kind k, or "" for
// KindUnrecognized.
func WireType(k Kind) string {
	for wire, kind := range wireTypes {
		if kind == k {
			return wire
		}
	}
	return ""
}

// flexID accepts a JSON string, number or null.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*id = flexID(n.String())
	}
	return nil
}

// Encode renders ev as a backend wire record. Unrecognized events are
// returned verbatim.
func Encode(ev Event) ([]byte, error) {
	if u, ok := ev.(Unrecognized); ok {
		return u.Raw, nil
	}
	rec := map[string]any{"type": WireType(ev.Kind())}
	switch e := ev.(type) {
	case SlotReserved:
		rec["slot"] = e.SlotID
		if e.SessionID != "" {
			rec["session"] = e.SessionID
		}
	case SlotOccupied:
		rec["slot"] = e.SlotID
	case SlotFreed:
		rec["slot"] = e.SlotID
	case BeamEntry:
		rec["state"] = e.State
	case BeamExit:
		rec["state"] = e.State
	}
	return json.Marshal(rec)
}
