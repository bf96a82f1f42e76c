// Package analysis drives the streaming geo-context analysis: it issues the
// request for a canonical polygon, decodes the event stream, and renders
// the terminal payload into summary text.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/NERVsystems/geocontext/pkg/geo"
	"github.com/NERVsystems/geocontext/pkg/sse"
	"github.com/NERVsystems/geocontext/pkg/upstream"
)

// contextPath is the analysis endpoint path on the backend.
const contextPath = "/generate-context"

// Client talks to the GeoContext analysis backend.
type Client struct {
	logger  *slog.Logger
	baseURL string
}

// NewClient creates an analysis client for the given backend origin.
func NewClient(baseURL string) *Client {
	return &Client{
		logger:  slog.Default(),
		baseURL: baseURL,
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request posts the polygon and returns the response stream. The caller
// owns the returned body and must close it.
func (c *Client) Request(ctx context.Context, polygon geo.RequestPolygon) (io.ReadCloser, error) {
	body, err := json.Marshal(map[string]json.RawMessage{"geojson": json.RawMessage(polygon)})
	if err != nil {
		return nil, fmt.Errorf("encode analysis request: %w", err)
	}

	req, err := upstream.NewRequest(ctx, http.MethodPost, c.baseURL+contextPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := upstream.DoRequest(ctx, upstream.ServiceAnalysis, req)
	if err != nil {
		return nil, fmt.Errorf("analysis request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &RequestError{StatusCode: resp.StatusCode}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, ErrNoBody
	}
	return resp.Body, nil
}

// Analyze runs one complete request-and-decode cycle and returns the
// terminal JSON payload.
func (c *Client) Analyze(ctx context.Context, polygon geo.RequestPolygon, onProgress sse.ProgressFunc) (json.RawMessage, error) {
	body, err := c.Request(ctx, polygon)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return sse.Decode(ctx, body, onProgress)
}

// ParseSummary extracts the structured summary section from a terminal
// payload. It returns nil when the payload has no summary; other top-level
// fields are left untouched in the raw payload for display.
func ParseSummary(payload json.RawMessage) *Summary {
	var envelope struct {
		Summary *Summary `json:"summary"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil
	}
	return envelope.Summary
}
