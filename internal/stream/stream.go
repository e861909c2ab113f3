// Package stream maintains the push channel to the backend. A Client dials
// through a pluggable Dialer, decodes records into events and hands them to
// a Handler in arrival order. Failures are reported as a disconnect and
// followed by exactly one reconnection attempt after a fixed delay.
//
// State machine:
//
//	idle → connecting → connected → disconnected → connecting → …
//	                 ↘ disconnected (dial failed)
//
// Any state moves to stopped when the context passed to Start is cancelled.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/alfredjeanlab/lotwatch/internal/clock"
	"github.com/alfredjeanlab/lotwatch/internal/events"
	"github.com/alfredjeanlab/lotwatch/internal/metrics"
	"github.com/alfredjeanlab/lotwatch/internal/model"
)

// DefaultReconnectDelay is the fixed pause between a failure and the next
// dial.
const DefaultReconnectDelay = 3 * time.Second

// State is the client's position in the connection state machine.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateStopped      State = "stopped"
)

// Conn is one established push channel.
type Conn interface {
	// Next blocks until the next raw record arrives. Any error ends the
	// connection.
	Next() ([]byte, error)
	Close() error
}

// Dialer opens a new Conn.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }

// Handler receives everything the client produces. Calls are made from the
// client's reader goroutine, one at a time, in order.
type Handler interface {
	HandleEvent(ev events.Event)
	HandleConnection(state model.ConnectionState)
}

// ChannelError wraps a failure of the push channel.
type ChannelError struct {
	Op  string // "dial" or "read"
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("event stream %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// Option configures a Client.
type Option func(*Client)

// WithClock replaces the real clock, typically with clock.Fake in tests.
func WithClock(c clock.Clock) Option {
	return func(cl *Client) { cl.clock = c }
}

// WithReconnectDelay sets the fixed reconnection delay.
func WithReconnectDelay(d time.Duration) Option {
	return func(cl *Client) { cl.policy = backoff.NewConstantBackOff(d) }
}

// WithBackOff replaces the reconnection policy. The policy is Reset after
// every successful connect; returning backoff.Stop ends reconnection.
func WithBackOff(b backoff.BackOff) Option {
	return func(cl *Client) { cl.policy = b }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithMetrics records dials and connection state.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// Client is the event stream client.
type Client struct {
	dialer  Dialer
	handler Handler
	clock   clock.Clock
	policy  backoff.BackOff
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	state   State
	timer   *clock.Timer
	conn    Conn
	dials   int
	started bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates an idle client.
func New(d Dialer, h Handler, opts ...Option) *Client {
	c := &Client{
		dialer:  d,
		handler: h,
		clock:   clock.Real(),
		policy:  backoff.NewConstantBackOff(DefaultReconnectDelay),
		logger:  slog.Default(),
		state:   StateIdle,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dials returns how many connection attempts have been made.
func (c *Client) Dials() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dials
}

// Start leaves idle and begins the first connection attempt. It returns
// immediately. Cancelling ctx stops the client; Wait blocks until its
// goroutines have exited.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("stream client already started")
	}
	c.started = true
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-ctx.Done():
			c.stop()
		case <-c.done:
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.connect(ctx)
	}()
	return nil
}

// Wait blocks until the client has stopped and its reader has exited.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) connect(ctx context.Context) {
	if !c.transition(StateConnecting) {
		return
	}
	c.mu.Lock()
	c.timer = nil
	c.dials++
	attempt := c.dials
	c.mu.Unlock()

	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		c.metrics.Dial(false)
		c.fail(ctx, &ChannelError{Op: "dial", Err: err})
		return
	}
	c.metrics.Dial(true)

	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.state = StateConnected
	c.conn = conn
	c.mu.Unlock()

	c.policy.Reset()
	c.metrics.Connected(true)
	c.logger.Info("event stream connected", "attempt", attempt)
	c.handler.HandleConnection(model.Connected)

	c.read(ctx, conn)
}

func (c *Client) read(ctx context.Context, conn Conn) {
	for {
		data, err := conn.Next()
		if err != nil {
			conn.Close()
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			c.fail(ctx, &ChannelError{Op: "read", Err: err})
			return
		}
		ev, err := events.Decode(data)
		if err != nil {
			c.logger.Warn("dropping malformed event record", "err", err, "record", string(data))
			continue
		}
		if u, ok := ev.(events.Unrecognized); ok {
			c.logger.Info("ignoring unrecognized event", "type", u.Type)
		}
		c.handler.HandleEvent(ev)
	}
}

// fail reports a disconnect and schedules one reconnection attempt.
func (c *Client) fail(ctx context.Context, err error) {
	if !c.transition(StateDisconnected) {
		return
	}
	c.metrics.Connected(false)
	c.handler.HandleConnection(model.Disconnected)

	if ctx.Err() != nil {
		c.stop()
		return
	}

	delay := c.policy.NextBackOff()
	if delay == backoff.Stop {
		c.logger.Error("event stream giving up", "err", err)
		c.stop()
		return
	}
	c.logger.Warn("event stream disconnected", "err", err, "retry_in", delay)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateStopped {
		return
	}
	// The pending attempt holds a WaitGroup slot from now on. stop releases
	// it if the timer never fires.
	c.wg.Add(1)
	c.timer = c.clock.AfterFunc(delay, func() {
		go func() {
			defer c.wg.Done()
			c.connect(ctx)
		}()
	})
}

// transition moves to next unless the client has been stopped.
func (c *Client) transition(next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateStopped {
		return false
	}
	c.state = next
	return true
}

func (c *Client) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateStopped {
		return
	}
	c.state = StateStopped
	close(c.done)
	if c.timer != nil {
		if c.timer.Stop() {
			c.wg.Done()
		}
		c.timer = nil
	}
	if c.conn != nil {
		// Unblocks Next in the reader goroutine.
		c.conn.Close()
	}
}
