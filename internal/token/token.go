// Package token keeps one short-lived entry or exit token fresh. A Manager
// requests a token immediately and then again on a fixed cadence shorter
// than the token lifetime, so a replacement is always adopted before the
// previous token lapses.
package token

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/lotwatch/internal/clock"
	"github.com/alfredjeanlab/lotwatch/internal/metrics"
	"github.com/alfredjeanlab/lotwatch/internal/model"
)

const (
	DefaultTTL    = 90 * time.Second
	DefaultMargin = 10 * time.Second
)

// Interval returns the refresh cadence for tokens living ttl, refreshed
// margin before they lapse. It never returns less than one second.
func Interval(ttl, margin time.Duration) time.Duration {
	d := ttl - margin
	if d < time.Second {
		return time.Second
	}
	return d
}

// Requester issues tokens. client.FacilityClient satisfies it.
type Requester interface {
	RequestToken(ctx context.Context, purpose model.Purpose) (*model.Token, error)
}

// State is the manager's view of its current token.
type State string

const (
	StateAbsent  State = "absent"
	StatePending State = "pending"
	StateLive    State = "live"
	StateExpired State = "expired"
)

// ExpiredError reports a token that was already past its expiry when it
// arrived.
type ExpiredError struct {
	Purpose   model.Purpose
	ExpiresAt time.Time
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("%s token expired at %s before adoption", e.Purpose, e.ExpiresAt.Format(time.RFC3339))
}

// Option configures a Manager.
type Option func(*Manager)

func WithClock(c clock.Clock) Option { return func(m *Manager) { m.clock = c } }

func WithInterval(d time.Duration) Option { return func(m *Manager) { m.interval = d } }

func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.logger = l } }

func WithMetrics(mt *metrics.Metrics) Option { return func(m *Manager) { m.metrics = mt } }

// OnToken is called with every adopted token.
func OnToken(f func(*model.Token)) Option { return func(m *Manager) { m.onToken = f } }

// OnError is called with every failed or discarded refresh.
func OnError(f func(model.Purpose, error)) Option { return func(m *Manager) { m.onError = f } }

// Manager owns the token for one purpose.
type Manager struct {
	purpose  model.Purpose
	req      Requester
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	onToken  func(*model.Token)
	onError  func(model.Purpose, error)

	mu         sync.Mutex
	current    *model.Token
	requesting bool
	superseded int
}

// NewManager creates a manager for purpose. The default cadence is
// Interval(DefaultTTL, DefaultMargin).
func NewManager(purpose model.Purpose, req Requester, opts ...Option) *Manager {
	m := &Manager{
		purpose:  purpose,
		req:      req,
		clock:    clock.Real(),
		interval: Interval(DefaultTTL, DefaultMargin),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Purpose() model.Purpose { return m.purpose }

// Refresh requests a new token and adopts it. On failure the current token
// is kept and the error returned; no retry is scheduled.
func (m *Manager) Refresh(ctx context.Context) (*model.Token, error) {
	m.mu.Lock()
	m.requesting = true
	m.mu.Unlock()

	tok, err := m.req.RequestToken(ctx, m.purpose)

	m.mu.Lock()
	m.requesting = false
	if err == nil && tok.Expired(m.clock.Now()) {
		err = &ExpiredError{Purpose: m.purpose, ExpiresAt: tok.ExpiresAt}
		m.mu.Unlock()
		m.metrics.TokenRefresh(m.purpose.String(), metrics.TokenDiscarded)
		m.fail(err)
		return nil, err
	}
	if err != nil {
		m.mu.Unlock()
		m.metrics.TokenRefresh(m.purpose.String(), metrics.TokenFailed)
		m.fail(err)
		return nil, err
	}
	if m.current != nil {
		m.superseded++
	}
	m.current = tok
	m.mu.Unlock()

	m.metrics.TokenRefresh(m.purpose.String(), metrics.TokenOK)
	m.metrics.TokenExpiry(m.purpose.String(), float64(tok.ExpiresAt.Unix()))
	m.logger.Debug("token refreshed", "purpose", m.purpose, "expires_at", tok.ExpiresAt)
	if m.onToken != nil {
		m.onToken(tok)
	}
	return tok, nil
}

func (m *Manager) fail(err error) {
	m.logger.Warn("token refresh failed", "purpose", m.purpose, "err", err)
	if m.onError != nil {
		m.onError(m.purpose, err)
	}
}

// Run refreshes immediately and then once per interval until ctx is
// cancelled. Refresh errors are reported through OnError and otherwise
// ignored.
func (m *Manager) Run(ctx context.Context) error {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Refresh(ctx)
		}
	}
}

// Current returns the adopted token, or nil.
func (m *Manager) Current() *model.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Superseded returns how many adopted tokens have been replaced.
func (m *Manager) Superseded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.superseded
}

// State reports the manager's state at now.
func (m *Manager) State(now time.Time) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.current == nil && m.requesting:
		return StatePending
	case m.current == nil:
		return StateAbsent
	case m.current.Expired(now):
		return StateExpired
	default:
		return StateLive
	}
}
