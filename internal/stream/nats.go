package stream

import (
	"context"
	"errors"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/lotwatch/internal/events"
)

// ErrNATSClosed is returned by Next when the NATS connection went away
// without a recorded error.
var ErrNATSClosed = errors.New("nats connection closed")

// NATSDialer subscribes to relayed event records on NATS, for deployments
// where a relay (lw events --relay-nats) fans out the backend feed.
type NATSDialer struct {
	URL string

	// Subject defaults to every parking subject.
	Subject string
	Options []nats.Option
}

// Dial implements Dialer.
func (d *NATSDialer) Dial(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub, err := events.NewNATSSubscriber(d.URL, d.Options...)
	if err != nil {
		return nil, err
	}
	subject := d.Subject
	if subject == "" {
		subject = events.SubjectPrefix + ">"
	}
	ch, cancel, err := sub.Subscribe(subject)
	if err != nil {
		sub.Close()
		return nil, err
	}
	return &natsConn{sub: sub, ch: ch, cancel: cancel, closed: make(chan struct{})}, nil
}

type natsConn struct {
	sub    *events.NATSSubscriber
	ch     <-chan []byte
	cancel func()

	once   sync.Once
	closed chan struct{}
}

func (c *natsConn) Next() ([]byte, error) {
	select {
	case rec := <-c.ch:
		return rec, nil
	case <-c.sub.Done():
		if err := c.sub.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNATSClosed
	case <-c.closed:
		return nil, ErrNATSClosed
	}
}

func (c *natsConn) Close() error {
	c.once.Do(func() {
		close(c.closed)
		c.cancel()
		c.sub.Close()
	})
	return nil
}
