package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alfredjeanlab/lotwatch/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	body        string
	contentType string
	calls       int

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	h.method = r.Method
	h.path = r.URL.Path
	h.contentType = r.Header.Get("Content-Type")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(h http.Handler) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(h)
	c := NewHTTPClient(srv.URL, 5*time.Second)
	return c, srv
}

// --- FetchSnapshot ---

func TestHTTPClient_FetchSnapshot(t *testing.T) {
	h := &testHandler{
		responseBody: `{
			"total": 4,
			"free": 3,
			"slots": [
				{"id": 1, "status": "reserved", "session_id": "abc"},
				{"id": 2, "status": "free", "session_id": null},
				{"id": 3, "status": "free"},
				{"id": "4", "status": "free"}
			]
		}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	snap, err := c.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot() error = %v", err)
	}

	if h.method != http.MethodGet {
		t.Errorf("method = %q, want GET", h.method)
	}
	if h.path != "/api/slots" {
		t.Errorf("path = %q, want /api/slots", h.path)
	}

	if snap.TotalSlots != 4 || snap.FreeSlots != 3 {
		t.Errorf("total/free = %d/%d, want 4/3", snap.TotalSlots, snap.FreeSlots)
	}
	if len(snap.Slots) != 4 {
		t.Fatalf("len(slots) = %d, want 4", len(snap.Slots))
	}
	first := snap.Slots[0]
	if first.ID != "1" || first.Status != model.SlotReserved || first.SessionID != "abc" {
		t.Errorf("slots[0] = %+v", first)
	}
	if snap.Slots[3].ID != "4" {
		t.Errorf("string id not preserved: %q", snap.Slots[3].ID)
	}
}

func TestHTTPClient_FetchSnapshot_ProtocolErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing total", `{"free": 0, "slots": []}`},
		{"missing slots", `{"total": 0, "free": 0}`},
		{"free over total", `{"total": 1, "free": 2, "slots": [{"id": 1, "status": "free"}]}`},
		{"free mismatch", `{"total": 2, "free": 2, "slots": [{"id": 1, "status": "free"}, {"id": 2, "status": "occupied", "session_id": "x"}]}`},
		{"duplicate ids", `{"total": 2, "free": 2, "slots": [{"id": 1, "status": "free"}, {"id": 1, "status": "free"}]}`},
		{"not json", `<html>oops</html>`},
		{"bad id type", `{"total": 1, "free": 1, "slots": [{"id": true, "status": "free"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv := newTestClient(&testHandler{responseBody: tt.body})
			defer srv.Close()

			snap, err := c.FetchSnapshot(context.Background())
			if err == nil {
				t.Fatalf("FetchSnapshot() = %+v, want error", snap)
			}
			if !IsProtocol(err) {
				t.Fatalf("error = %v (%T), want ProtocolError", err, err)
			}
			if IsNetwork(err) {
				t.Fatal("protocol error also classified as network error")
			}
		})
	}
}

func TestHTTPClient_FetchSnapshot_ServerError(t *testing.T) {
	h := &testHandler{statusCode: http.StatusInternalServerError, responseBody: `{"detail": "db locked"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.FetchSnapshot(context.Background())
	if !IsNetwork(err) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected wrapped *APIError, got %T", err)
	}
	if apiErr.StatusCode != 500 || apiErr.Message != "db locked" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestHTTPClient_FetchSnapshot_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, time.Second)
	_, err := c.FetchSnapshot(context.Background())
	if !IsNetwork(err) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
}

// --- RequestToken ---

func TestHTTPClient_RequestToken(t *testing.T) {
	h := &testHandler{
		responseBody: `{"token": "tok-abc", "expires_at": "2026-01-15T10:01:30Z", "url": "http://localhost:8000/claim?tk=tok-abc"}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	tok, err := c.RequestToken(context.Background(), model.PurposeEntry)
	if err != nil {
		t.Fatalf("RequestToken() error = %v", err)
	}
	if h.path != "/api/qr/entry" {
		t.Errorf("path = %q, want /api/qr/entry", h.path)
	}
	want := time.Date(2026, 1, 15, 10, 1, 30, 0, time.UTC)
	if tok.Value != "tok-abc" || tok.Purpose != model.PurposeEntry || !tok.ExpiresAt.Equal(want) {
		t.Errorf("token = %+v", tok)
	}
}

func TestHTTPClient_RequestToken_NaiveTimestamp(t *testing.T) {
	h := &testHandler{responseBody: `{"token": "t", "expires_at": "2026-01-15T10:01:30.123456"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	tok, err := c.RequestToken(context.Background(), model.PurposeExit)
	if err != nil {
		t.Fatalf("RequestToken() error = %v", err)
	}
	if h.path != "/api/qr/exit" {
		t.Errorf("path = %q, want /api/qr/exit", h.path)
	}
	want := time.Date(2026, 1, 15, 10, 1, 30, 123456000, time.Local)
	if !tok.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", tok.ExpiresAt, want)
	}
}

func TestHTTPClient_RequestToken_Malformed(t *testing.T) {
	for _, body := range []string{
		`{"expires_at": "2026-01-15T10:01:30Z"}`,
		`{"token": "t"}`,
		`{"token": "t", "expires_at": "next tuesday"}`,
	} {
		c, srv := newTestClient(&testHandler{responseBody: body})
		_, err := c.RequestToken(context.Background(), model.PurposeEntry)
		srv.Close()
		if !IsProtocol(err) {
			t.Errorf("body %s: error = %v, want ProtocolError", body, err)
		}
	}
}

func TestHTTPClient_RequestToken_InvalidPurpose(t *testing.T) {
	h := &testHandler{}
	c, srv := newTestClient(h)
	defer srv.Close()

	if _, err := c.RequestToken(context.Background(), "lobby"); err == nil {
		t.Fatal("expected error for invalid purpose")
	}
	if h.calls != 0 {
		t.Errorf("made %d requests for an invalid purpose", h.calls)
	}
}

// --- Admin ---

func TestHTTPClient_SetSlots(t *testing.T) {
	h := &testHandler{responseBody: `{"ok": true}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	if err := c.SetSlots(context.Background(), 6); err != nil {
		t.Fatalf("SetSlots() error = %v", err)
	}
	if h.method != http.MethodPost || h.path != "/api/admin/set_slots" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if h.contentType != "application/json" {
		t.Errorf("content-type = %q", h.contentType)
	}
	var body map[string]int
	if err := json.Unmarshal([]byte(h.body), &body); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if body["total_slots"] != 6 {
		t.Errorf("total_slots = %d, want 6", body["total_slots"])
	}
}

func TestHTTPClient_GateCommand(t *testing.T) {
	h := &testHandler{responseBody: `{"ok": false, "reason": "Failed to send command"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	res, err := c.GateCommand(context.Background(), GateOpen)
	if err != nil {
		t.Fatalf("GateCommand() error = %v", err)
	}
	if h.path != "/api/admin/gate" {
		t.Errorf("path = %q", h.path)
	}
	var body map[string]string
	_ = json.Unmarshal([]byte(h.body), &body)
	if body["command"] != "open" {
		t.Errorf("command = %q, want open", body["command"])
	}
	if res.OK || res.Reason != "Failed to send command" {
		t.Errorf("result = %+v", res)
	}

	if _, err := c.GateCommand(context.Background(), "lift"); err == nil {
		t.Error("expected error for invalid gate command")
	}
}
