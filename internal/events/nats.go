package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes event records to NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, record []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.conn.Publish(subject, record)
}

// Flush waits until the server has processed everything published so far.
func (p *NATSPublisher) Flush() error {
	return p.conn.Flush()
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber subscribes to event records on NATS subjects.
//
// Reconnection is left to the caller: the connection is opened with
// reconnects disabled so a dropped server surfaces through Done, and the
// stream client's own fixed-delay policy decides when to dial again.
type NATSSubscriber struct {
	conn *nats.Conn

	mu      sync.Mutex
	lastErr error
	done    chan struct{}
}

// NewNATSSubscriber connects to NATS. Extra options are applied after the
// defaults but cannot replace the closed handler that feeds Done.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	s := &NATSSubscriber{done: make(chan struct{})}
	all := append([]nats.Option{nats.NoReconnect()}, opts...)
	all = append(all,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.mu.Lock()
			if err != nil {
				s.lastErr = err
			}
			s.mu.Unlock()
		}),
		nats.ClosedHandler(func(*nats.Conn) { close(s.done) }),
	)
	nc, err := nats.Connect(url, all...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	s.conn = nc
	return s, nil
}

// Subscribe returns a channel that receives raw records for the given
// subject (NATS wildcards like "parking.>" are supported). Records arrive in
// publish order. The channel is never closed; stop reading after cancel or
// once Done is closed.
func (s *NATSSubscriber) Subscribe(subject string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 64)
	stop := make(chan struct{})
	var once sync.Once

	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		// Block rather than drop so the reader sees every record in order.
		select {
		case ch <- msg.Data:
		case <-stop:
		}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}

	// Flush so the subscription is registered on the server before
	// returning; records published on other connections are then routed.
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}

	cancel := func() {
		once.Do(func() {
			close(stop)
			_ = sub.Unsubscribe()
		})
	}
	return ch, cancel, nil
}

// Done is closed once the connection is permanently closed, either by Close
// or because the server went away.
func (s *NATSSubscriber) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that caused the last disconnect, if any.
func (s *NATSSubscriber) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
