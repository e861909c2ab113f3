// Package reconcile owns the dashboard's combined state. Slot events never
// carry enough data to update the slot list, so they trigger an
// authoritative re-pull; gate and sensor events are applied directly.
//
// A Reconciler is not safe for concurrent use. The engine calls it from a
// single goroutine.
package reconcile

import (
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/lotwatch/internal/clock"
	"github.com/alfredjeanlab/lotwatch/internal/events"
	"github.com/alfredjeanlab/lotwatch/internal/metrics"
	"github.com/alfredjeanlab/lotwatch/internal/model"
)

// Puller starts a snapshot fetch. The result must be reported back through
// ApplySnapshot or PullFailed.
type Puller interface {
	StartPull()
}

// PullerFunc adapts a function to the Puller interface.
type PullerFunc func()

func (f PullerFunc) StartPull() { f() }

// Option configures a Reconciler.
type Option func(*Reconciler)

func WithClock(c clock.Clock) Option { return func(r *Reconciler) { r.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(r *Reconciler) { r.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(r *Reconciler) { r.metrics = m } }

// Reconciler holds the CombinedState and the pull bookkeeping.
type Reconciler struct {
	puller  Puller
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics

	state    model.CombinedState
	inFlight bool
	pending  bool
	pulls    int
}

// New returns a reconciler in the initial state: no snapshot, unknown gate
// and sensors, disconnected, no tokens.
func New(p Puller, opts ...Option) *Reconciler {
	r := &Reconciler{
		puller: p,
		clock:  clock.Real(),
		logger: slog.Default(),
		state:  model.NewCombinedState(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CurrentState returns a copy of the combined state.
func (r *Reconciler) CurrentState() model.CombinedState {
	return r.state.Clone()
}

// Pulls returns how many pulls have been started.
func (r *Reconciler) Pulls() int { return r.pulls }

// PullInFlight reports whether a pull is outstanding.
func (r *Reconciler) PullInFlight() bool { return r.inFlight }

// Apply folds one push event into the state. It reports whether the visible
// state changed; slot events only schedule a pull and report false.
func (r *Reconciler) Apply(ev events.Event) bool {
	r.metrics.Event(string(ev.Kind()))

	if ev.Kind().AffectsSlots() {
		r.RequestPull()
		return false
	}

	switch e := ev.(type) {
	case events.GateOpened:
		return r.setGate(model.GateOpen)
	case events.GateClosed:
		return r.setGate(model.GateClosed)
	case events.BeamEntry:
		return r.setSensor(&r.state.Sensors.Entry, e.State)
	case events.BeamExit:
		return r.setSensor(&r.state.Sensors.Exit, e.State)
	case events.Unrecognized:
		r.logger.Debug("ignoring unrecognized event", "type", e.Type)
		return false
	default:
		r.logger.Warn("unhandled event kind", "kind", ev.Kind())
		return false
	}
}

// setSensor ignores readings other than clear or blocked.
func (r *Reconciler) setSensor(dst *model.SensorState, s model.SensorState) bool {
	if !s.IsValid() {
		r.logger.Warn("ignoring invalid sensor state", "state", s)
		return false
	}
	if *dst == s {
		return false
	}
	*dst = s
	return true
}

func (r *Reconciler) setGate(g model.GateState) bool {
	if r.state.Gate == g {
		return false
	}
	r.state.Gate = g
	return true
}

// RequestPull starts a pull, or marks one pending if a pull is already
// outstanding. At most one follow-up pull runs no matter how many requests
// arrive meanwhile. It reports whether a pull was started.
func (r *Reconciler) RequestPull() bool {
	if r.inFlight {
		if !r.pending {
			r.metrics.Pull(metrics.PullCoalesced)
		}
		r.pending = true
		return false
	}
	r.inFlight = true
	r.pulls++
	r.puller.StartPull()
	return true
}

// ApplySnapshot installs a pulled snapshot and completes the outstanding
// pull. An invalid snapshot is rejected and the previous one kept.
func (r *Reconciler) ApplySnapshot(s *model.FacilitySnapshot) error {
	defer r.completePull()

	if err := model.ValidateSnapshot(s); err != nil {
		r.metrics.Pull(metrics.PullRejected)
		return fmt.Errorf("rejecting snapshot: %w", err)
	}
	r.metrics.Pull(metrics.PullOK)
	r.state.Snapshot = s.Clone()
	r.state.LastPullAt = r.clock.Now()
	return nil
}

// PullFailed completes the outstanding pull without touching the snapshot.
func (r *Reconciler) PullFailed(err error) {
	r.metrics.Pull(metrics.PullFailed)
	r.logger.Warn("snapshot pull failed", "err", err)
	r.completePull()
}

func (r *Reconciler) completePull() {
	r.inFlight = false
	if r.pending {
		r.pending = false
		r.RequestPull()
	}
}

// SetConnection records the push channel state. It reports whether the
// state changed.
func (r *Reconciler) SetConnection(c model.ConnectionState) bool {
	if r.state.Connection == c {
		return false
	}
	r.state.Connection = c
	return true
}

// AdoptToken installs tok as the current token for its purpose. Tokens that
// have already expired are discarded.
func (r *Reconciler) AdoptToken(tok *model.Token) bool {
	if tok == nil || !tok.Purpose.IsValid() {
		return false
	}
	if tok.Expired(r.clock.Now()) {
		r.logger.Warn("discarding expired token", "purpose", tok.Purpose, "expires_at", tok.ExpiresAt)
		return false
	}
	cp := *tok
	if tok.Purpose == model.PurposeExit {
		r.state.Tokens.Exit = &cp
	} else {
		r.state.Tokens.Entry = &cp
	}
	return true
}
