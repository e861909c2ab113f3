// Package model defines the client-side view of the parking facility: the
// authoritative slot snapshot, push-only gate and sensor states, entry/exit
// tokens, and the CombinedState handed to presentation sinks.
package model

// SlotStatus is the occupancy state of a single parking slot.
type SlotStatus string

const (
	SlotFree     SlotStatus = "free"
	SlotReserved SlotStatus = "reserved"
	SlotOccupied SlotStatus = "occupied"
)

// String returns the string representation of the status.
func (s SlotStatus) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known statuses.
func (s SlotStatus) IsValid() bool {
	switch s {
	case SlotFree, SlotReserved, SlotOccupied:
		return true
	}
	return false
}

// Slot is one parking bay. SessionID is set iff Status is not free.
type Slot struct {
	ID        string     `json:"id"`
	Status    SlotStatus `json:"status"`
	SessionID string     `json:"session_id,omitempty"`
}

// FacilitySnapshot is the full facility state returned by a pull. It is
// replaced wholesale on every successful pull and never edited in place.
type FacilitySnapshot struct {
	TotalSlots int    `json:"total"`
	FreeSlots  int    `json:"free"`
	Slots      []Slot `json:"slots"`
}

// CountFree returns the number of slots whose status is free.
func (s *FacilitySnapshot) CountFree() int {
	n := 0
	for _, slot := range s.Slots {
		if slot.Status == SlotFree {
			n++
		}
	}
	return n
}

// Slot returns the slot with the given id.
func (s *FacilitySnapshot) Slot(id string) (Slot, bool) {
	for _, slot := range s.Slots {
		if slot.ID == id {
			return slot, true
		}
	}
	return Slot{}, false
}

// Clone returns a deep copy of the snapshot. A nil receiver yields nil.
func (s *FacilitySnapshot) Clone() *FacilitySnapshot {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Slots = append([]Slot(nil), s.Slots...)
	return &cp
}
