// Package client provides a transport-agnostic interface for the parking
// backend and an HTTP/JSON implementation of it.
package client

import (
	"context"

	"github.com/alfredjeanlab/lotwatch/internal/model"
)

// FacilityClient is the interface the dashboard and CLI commands use to talk
// to the parking backend. It is implemented by HTTPClient.
type FacilityClient interface {
	// Snapshots
	FetchSnapshot(ctx context.Context) (*model.FacilitySnapshot, error)

	// Tokens
	RequestToken(ctx context.Context, purpose model.Purpose) (*model.Token, error)

	// Admin
	SetSlots(ctx context.Context, total int) error
	GateCommand(ctx context.Context, command GateCommand) (*GateResult, error)

	// Lifecycle
	Close() error
}

// GateCommand is a manual gate override.
type GateCommand string

const (
	GateOpen  GateCommand = "open"
	GateClose GateCommand = "close"
)

// IsValid reports whether c is open or close.
func (c GateCommand) IsValid() bool {
	return c == GateOpen || c == GateClose
}

// GateResult is the backend's answer to a gate override. OK is false when
// the gate controller could not be reached.
type GateResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}
