package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// ValidateSnapshot checks a snapshot against the facility invariants.
// It returns a *ValidationError if any rules fail, or nil if the snapshot is valid.
func ValidateSnapshot(s *FacilitySnapshot) error {
	if s == nil {
		return &ValidationError{Errors: []FieldError{{Field: "snapshot", Message: "is required"}}}
	}
	var ve ValidationError

	if s.TotalSlots < 0 {
		ve.add("total", "must be >= 0, got %d", s.TotalSlots)
	}
	if s.FreeSlots < 0 || s.FreeSlots > s.TotalSlots {
		ve.add("free", "must be between 0 and %d, got %d", s.TotalSlots, s.FreeSlots)
	}
	if free := s.CountFree(); free != s.FreeSlots {
		ve.add("free", "is %d but %d slots are free", s.FreeSlots, free)
	}

	seen := make(map[string]bool, len(s.Slots))
	for i, slot := range s.Slots {
		field := fmt.Sprintf("slots[%d]", i)
		if slot.ID == "" {
			ve.add(field+".id", "is required")
		} else if seen[slot.ID] {
			ve.add(field+".id", "duplicate id %q", slot.ID)
		}
		seen[slot.ID] = true

		if !slot.Status.IsValid() {
			ve.add(field+".status", "invalid value %q", slot.Status)
			continue
		}
		if slot.Status == SlotFree && slot.SessionID != "" {
			ve.add(field+".session_id", "must be empty for a free slot")
		}
		if slot.Status != SlotFree && slot.SessionID == "" {
			ve.add(field+".session_id", "is required for a %s slot", slot.Status)
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
