// Package render wraps the external document renderer used to produce
// printable prescription documents. The renderer is an internal service that
// accepts a JSON payload and returns HTML suitable for printing or PDF
// conversion.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnavailable is returned when the renderer cannot be reached or responds
// with a server error. Callers degrade gracefully: the API still serves the
// raw prescription JSON.
var ErrUnavailable = errors.New("document renderer unavailable")

// Document is a rendered printable document.
type Document struct {
	ContentType string
	Body        []byte
}

// Request is the payload sent to the renderer.
type Request struct {
	Template string          `json:"template"`
	Data     json.RawMessage `json:"data"`
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// Client calls the document renderer service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a renderer client. An empty baseURL disables rendering;
// Render then always returns ErrUnavailable.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	cl := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(cl)
	}
	return cl
}

// Enabled reports whether a renderer endpoint is configured.
func (cl *Client) Enabled() bool {
	return cl.baseURL != ""
}

// Render posts the template and data to the renderer and returns the
// produced document.
func (cl *Client) Render(ctx context.Context, template string, data any) (*Document, error) {
	if !cl.Enabled() {
		return nil, ErrUnavailable
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal render data: %w", err)
	}
	payload, err := json.Marshal(Request{Template: template, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cl.baseURL+"/render", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := cl.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("renderer rejected request: status %d: %s", resp.StatusCode, body)
	}

	// Cap document size at 5MB.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, fmt.Errorf("read rendered document: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}
	return &Document{ContentType: contentType, Body: body}, nil
}
