// Package engine runs the live dashboard. It owns the reconciler on a
// single goroutine and feeds it from the event stream, the token managers,
// snapshot pulls and the fallback poll ticker. Network calls run on their
// own goroutines and post their results back to the loop.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/lotwatch/internal/clock"
	"github.com/alfredjeanlab/lotwatch/internal/events"
	"github.com/alfredjeanlab/lotwatch/internal/idgen"
	"github.com/alfredjeanlab/lotwatch/internal/journal"
	"github.com/alfredjeanlab/lotwatch/internal/metrics"
	"github.com/alfredjeanlab/lotwatch/internal/model"
	"github.com/alfredjeanlab/lotwatch/internal/reconcile"
	"github.com/alfredjeanlab/lotwatch/internal/stream"
	"github.com/alfredjeanlab/lotwatch/internal/token"
)

// Backend is the part of the facility client the engine needs.
type Backend interface {
	FetchSnapshot(ctx context.Context) (*model.FacilitySnapshot, error)
	RequestToken(ctx context.Context, purpose model.Purpose) (*model.Token, error)
}

// Sink receives the combined state after every change. Render is called on
// the engine goroutine and must not block for long.
type Sink interface {
	Render(state model.CombinedState, recent []journal.Entry)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(model.CombinedState, []journal.Entry)

func (f SinkFunc) Render(s model.CombinedState, recent []journal.Entry) { f(s, recent) }

// Options configures an Engine. Zero values select defaults.
type Options struct {
	// PollInterval re-pulls the snapshot periodically, independent of the
	// push channel. Zero disables polling.
	PollInterval   time.Duration
	ReconnectDelay time.Duration
	TokenInterval  time.Duration

	// RecentEntries is how many journal entries are handed to the sink.
	RecentEntries int

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Journal *journal.Journal
	Sink    Sink
}

// Engine is the live-state loop.
type Engine struct {
	backend Backend
	dialer  stream.Dialer
	opts    Options
	clock   clock.Clock
	logger  *slog.Logger
	journal *journal.Journal

	rec  *reconcile.Reconciler
	work chan func()

	mu        sync.RWMutex
	published model.CombinedState
	running   bool
	runCtx    context.Context
}

// New creates an engine. Run starts it.
func New(b Backend, d stream.Dialer, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Journal == nil {
		opts.Journal = journal.New(journal.DefaultCapacity, opts.Clock)
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = stream.DefaultReconnectDelay
	}
	if opts.TokenInterval <= 0 {
		opts.TokenInterval = token.Interval(token.DefaultTTL, token.DefaultMargin)
	}
	if opts.RecentEntries <= 0 {
		opts.RecentEntries = 10
	}

	e := &Engine{
		backend: b,
		dialer:  d,
		opts:    opts,
		clock:   opts.Clock,
		logger:  opts.Logger,
		journal: opts.Journal,
		work:    make(chan func(), 64),
	}
	e.rec = reconcile.New(reconcile.PullerFunc(e.startPull),
		reconcile.WithClock(opts.Clock),
		reconcile.WithLogger(opts.Logger),
		reconcile.WithMetrics(opts.Metrics),
	)
	e.published = e.rec.CurrentState()
	return e
}

// CurrentState returns a copy of the most recently published state. It is
// safe to call from any goroutine.
func (e *Engine) CurrentState() model.CombinedState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.published.Clone()
}

// Journal returns the activity journal.
func (e *Engine) Journal() *journal.Journal { return e.journal }

// RequestPull asks for a snapshot pull. It is coalesced with any pull
// already outstanding. Before Run it is a no-op, since Run always starts
// with a pull. It blocks until the loop accepts the request or stops.
func (e *Engine) RequestPull() {
	e.post(func() { e.rec.RequestPull() })
}

// Run drives the engine until ctx is cancelled. It performs the initial
// pull, starts the push channel and both token managers, and then serves
// the loop.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine already running")
	}
	e.running = true
	e.runCtx = ctx
	e.mu.Unlock()

	var wg sync.WaitGroup

	sc := stream.New(e.dialer, streamHandler{e},
		stream.WithClock(e.clock),
		stream.WithReconnectDelay(e.opts.ReconnectDelay),
		stream.WithLogger(e.logger),
		stream.WithMetrics(e.opts.Metrics),
	)

	for _, p := range []model.Purpose{model.PurposeEntry, model.PurposeExit} {
		m := token.NewManager(p, e.backend,
			token.WithClock(e.clock),
			token.WithInterval(e.opts.TokenInterval),
			token.WithLogger(e.logger),
			token.WithMetrics(e.opts.Metrics),
			token.OnToken(e.adoptToken),
			token.OnError(e.tokenFailed),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Run(ctx)
		}()
	}

	var pollC <-chan time.Time
	if e.opts.PollInterval > 0 {
		poll := e.clock.NewTicker(e.opts.PollInterval)
		defer poll.Stop()
		pollC = poll.C
	}

	e.rec.RequestPull()
	if err := sc.Start(ctx); err != nil {
		return err
	}
	e.publish()

	for {
		select {
		case <-ctx.Done():
			sc.Wait()
			wg.Wait()
			e.logger.Info("engine stopped")
			return nil
		case f := <-e.work:
			f()
			e.publish()
		case <-pollC:
			e.logger.Debug("poll tick")
			e.rec.RequestPull()
		}
	}
}

// post hands f to the loop. It gives up once the engine is stopping.
func (e *Engine) post(f func()) {
	e.mu.RLock()
	ctx := e.runCtx
	e.mu.RUnlock()
	if ctx == nil {
		return
	}
	select {
	case e.work <- f:
	case <-ctx.Done():
	}
}

func (e *Engine) publish() {
	st := e.rec.CurrentState()
	e.mu.Lock()
	e.published = st
	e.mu.Unlock()
	if e.opts.Sink != nil {
		e.opts.Sink.Render(st.Clone(), e.journal.Recent(e.opts.RecentEntries))
	}
}

// startPull is the reconciler's Puller. It runs on the loop goroutine.
func (e *Engine) startPull() {
	ctx := e.runCtx
	id := idgen.Tag(idgen.PrefixPull)
	e.logger.Debug("pull started", "pull_id", id)
	go func() {
		snap, err := e.backend.FetchSnapshot(ctx)
		e.post(func() {
			if err != nil {
				e.journal.Errorf("Slot refresh failed: %v", err)
				e.rec.PullFailed(err)
				return
			}
			if err := e.rec.ApplySnapshot(snap); err != nil {
				e.journal.Errorf("Slot refresh rejected: %v", err)
				e.logger.Warn("snapshot rejected", "pull_id", id, "err", err)
				return
			}
			e.logger.Debug("pull applied", "pull_id", id, "free", snap.FreeSlots, "total", snap.TotalSlots)
		})
	}()
}

func (e *Engine) adoptToken(tok *model.Token) {
	e.post(func() {
		if e.rec.AdoptToken(tok) {
			e.journal.Infof("%s token refreshed", capitalize(tok.Purpose.String()))
		}
	})
}

func (e *Engine) tokenFailed(p model.Purpose, err error) {
	e.post(func() {
		e.journal.Errorf("%s token refresh failed: %v", capitalize(p.String()), err)
	})
}

// streamHandler adapts the engine to stream.Handler.
type streamHandler struct{ e *Engine }

func (h streamHandler) HandleEvent(ev events.Event) {
	h.e.post(func() {
		h.e.journal.Infof("Event: %s", describe(ev))
		h.e.rec.Apply(ev)
	})
}

func (h streamHandler) HandleConnection(state model.ConnectionState) {
	h.e.post(func() {
		changed := h.e.rec.SetConnection(state)
		switch {
		case state == model.Disconnected:
			// Every failed attempt is journaled, including dials that fail
			// while already disconnected.
			h.e.journal.Errorf("Disconnected from backend events, retrying in %s", h.e.opts.ReconnectDelay)
		case changed:
			h.e.journal.Infof("Connected to backend events")
		}
	})
}

func describe(ev events.Event) string {
	switch e := ev.(type) {
	case events.SlotReserved:
		return fmt.Sprintf("slot %s reserved", e.SlotID)
	case events.SlotOccupied:
		return fmt.Sprintf("slot %s occupied", e.SlotID)
	case events.SlotFreed:
		return fmt.Sprintf("slot %s freed", e.SlotID)
	case events.GateOpened:
		return "gate opened"
	case events.GateClosed:
		return "gate closed"
	case events.BeamEntry:
		return "entry beam " + string(e.State)
	case events.BeamExit:
		return "exit beam " + string(e.State)
	case events.Unrecognized:
		return e.Type
	}
	return string(ev.Kind())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
