package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxRecordSize bounds a single streamed record.
const maxRecordSize = 1 << 20

// HTTPStreamDialer opens a long-lived HTTP response carrying one JSON
// record per line. Server-sent-event framing is also accepted: "data:"
// lines carry records and comment, id, event and retry lines are skipped.
type HTTPStreamDialer struct {
	URL    string
	Header http.Header

	// Client defaults to a client without a timeout.
	Client *http.Client
}

// Dial implements Dialer.
func (d *HTTPStreamDialer) Dial(ctx context.Context) (Conn, error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range d.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/x-ndjson, text/event-stream")

	client := d.Client
	if client == nil {
		client = &http.Client{}
	}
	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("GET %s: %w", d.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("GET %s: unexpected status %d", d.URL, resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	return &lineConn{body: resp.Body, scanner: scanner, cancel: cancel}, nil
}

type lineConn struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	cancel  context.CancelFunc
}

func (c *lineConn) Next() ([]byte, error) {
	for c.scanner.Scan() {
		line := bytes.TrimSpace(c.scanner.Bytes())
		if len(line) == 0 || line[0] == ':' {
			continue
		}
		if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			line = bytes.TrimSpace(rest)
			if len(line) == 0 {
				continue
			}
		} else if isSSEField(line) {
			continue
		}
		rec := make([]byte, len(line))
		copy(rec, line)
		return rec, nil
	}
	if err := c.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (c *lineConn) Close() error {
	c.cancel()
	return c.body.Close()
}

func isSSEField(line []byte) bool {
	for _, p := range []string{"id:", "event:", "retry:"} {
		if bytes.HasPrefix(line, []byte(p)) {
			return true
		}
	}
	return false
}
