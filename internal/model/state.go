package model

import "time"

// GateState is the last known barrier position. Unknown until the first
// gate event arrives; there is no pull equivalent.
type GateState string

const (
	GateUnknown GateState = "unknown"
	GateOpen    GateState = "open"
	GateClosed  GateState = "closed"
)

// SensorState is the last known reading of a beam sensor.
type SensorState string

const (
	SensorUnknown SensorState = "unknown"
	SensorClear   SensorState = "clear"
	SensorBlocked SensorState = "blocked"
)

// IsValid reports whether s is an observable reading (clear or blocked).
func (s SensorState) IsValid() bool {
	return s == SensorClear || s == SensorBlocked
}

// Sensors holds the entry and exit beam readings.
type Sensors struct {
	Entry SensorState `json:"entry"`
	Exit  SensorState `json:"exit"`
}

// ConnectionState reports whether the push channel is up.
type ConnectionState string

const (
	Connected    ConnectionState = "connected"
	Disconnected ConnectionState = "disconnected"
)

// CombinedState is everything a presentation sink needs to draw the
// dashboard. Values returned to callers are copies.
type CombinedState struct {
	// Snapshot is nil until the first successful pull.
	Snapshot   *FacilitySnapshot `json:"snapshot"`
	Gate       GateState         `json:"gate"`
	Sensors    Sensors           `json:"sensors"`
	Connection ConnectionState   `json:"connection"`
	Tokens     Tokens            `json:"tokens"`
	LastPullAt time.Time         `json:"last_pull_at,omitzero"`
}

// Tokens holds the most recently adopted token per purpose.
type Tokens struct {
	Entry *Token `json:"entry,omitempty"`
	Exit  *Token `json:"exit,omitempty"`
}

// Get returns the token for purpose p.
func (t Tokens) Get(p Purpose) *Token {
	if p == PurposeExit {
		return t.Exit
	}
	return t.Entry
}

// NewCombinedState returns the state before anything has been observed.
func NewCombinedState() CombinedState {
	return CombinedState{
		Gate:       GateUnknown,
		Sensors:    Sensors{Entry: SensorUnknown, Exit: SensorUnknown},
		Connection: Disconnected,
	}
}

// Clone returns a deep copy of s.
func (s CombinedState) Clone() CombinedState {
	cp := s
	cp.Snapshot = s.Snapshot.Clone()
	if s.Tokens.Entry != nil {
		t := *s.Tokens.Entry
		cp.Tokens.Entry = &t
	}
	if s.Tokens.Exit != nil {
		t := *s.Tokens.Exit
		cp.Tokens.Exit = &t
	}
	return cp
}
