package stream

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketDialer opens the backend's websocket event feed. Each text
// message carries one record; messages containing several newline
// separated records are split.
type WebSocketDialer struct {
	URL    string
	Header http.Header

	// PingInterval enables keepalive pings when positive. A missing pong
	// within PongTimeout ends the connection.
	PingInterval time.Duration
	PongTimeout  time.Duration
	WriteTimeout time.Duration

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// Dial implements Dialer.
func (d *WebSocketDialer) Dial(ctx context.Context) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	ws, resp, err := dialer.DialContext(ctx, d.URL, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", d.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}

	c := &wsConn{ws: ws, done: make(chan struct{})}
	if d.PingInterval > 0 {
		c.keepalive(d.PingInterval, d.PongTimeout, d.WriteTimeout)
	}
	return c, nil
}

type wsConn struct {
	ws      *websocket.Conn
	pending [][]byte

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func (c *wsConn) Next() ([]byte, error) {
	for len(c.pending) == 0 {
		kind, msg, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		for _, line := range bytes.Split(msg, []byte{'\n'}) {
			line = bytes.TrimSpace(line)
			if len(line) > 0 {
				c.pending = append(c.pending, line)
			}
		}
	}
	rec := c.pending[0]
	c.pending = c.pending[1:]
	return rec, nil
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *wsConn) keepalive(interval, pongTimeout, writeTimeout time.Duration) {
	if pongTimeout <= 0 {
		pongTimeout = 2 * interval
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.writeMu.Lock()
				err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
				c.writeMu.Unlock()
				if err != nil {
					// The read side sees the broken connection.
					c.ws.Close()
					return
				}
			case <-c.done:
				return
			}
		}
	}()
}
