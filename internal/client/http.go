package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alfredjeanlab/lotwatch/internal/model"
)

// HTTPClient implements FacilityClient using the backend's HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8000"). A zero timeout leaves requests bounded
// only by their context.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the backend URL this client targets.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Snapshots ---

// FetchSnapshot pulls the full facility state. It has no local side effects;
// on error the caller should keep its previous snapshot.
func (c *HTTPClient) FetchSnapshot(ctx context.Context) (*model.FacilitySnapshot, error) {
	const op = "GET /api/slots"
	var resp slotsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/slots", nil, &resp); err != nil {
		return nil, err
	}
	snap, err := resp.toSnapshot()
	if err != nil {
		return nil, &ProtocolError{Op: op, Err: err}
	}
	return snap, nil
}

// --- Tokens ---

func (c *HTTPClient) RequestToken(ctx context.Context, purpose model.Purpose) (*model.Token, error) {
	if !purpose.IsValid() {
		return nil, fmt.Errorf("invalid token purpose %q", purpose)
	}
	path := "/api/qr/" + string(purpose)
	var resp tokenResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	tok, err := resp.toToken(purpose)
	if err != nil {
		return nil, &ProtocolError{Op: "GET " + path, Err: err}
	}
	return tok, nil
}

// --- Admin ---

func (c *HTTPClient) SetSlots(ctx context.Context, total int) error {
	if total < 0 {
		return fmt.Errorf("total slots must be >= 0, got %d", total)
	}
	body := map[string]int{"total_slots": total}
	return c.doJSON(ctx, http.MethodPost, "/api/admin/set_slots", body, nil)
}

func (c *HTTPClient) GateCommand(ctx context.Context, command GateCommand) (*GateResult, error) {
	if !command.IsValid() {
		return nil, fmt.Errorf("invalid gate command %q (must be open or close)", command)
	}
	body := map[string]string{"command": string(command)}
	var result GateResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/admin/gate", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// --- internal helpers ---

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	op := method + " " + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode >= 400 {
		// FastAPI reports errors as {"detail": "..."}.
		var errResp struct {
			Detail string `json:"detail"`
			Error  string `json:"error"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &errResp) == nil {
			if errResp.Detail != "" {
				msg = errResp.Detail
			} else if errResp.Error != "" {
				msg = errResp.Error
			}
		}
		return &NetworkError{Op: op, Err: &APIError{StatusCode: resp.StatusCode, Message: msg}}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &ProtocolError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
		}
	}

	return nil
}
