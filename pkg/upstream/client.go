// Package upstream provides the shared HTTP plumbing for the external
// services the pipeline talks to: the Nominatim place-search endpoint and
// the GeoContext analysis service.
package upstream

import (
	"context"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

const (
	// NominatimBaseURL is the public OSM geocoding service.
	NominatimBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultAnalysisBaseURL is the analysis backend origin used when no
	// override is configured.
	DefaultAnalysisBaseURL = "http://localhost:8000"

	// AnalysisURLEnv overrides the analysis backend origin.
	AnalysisURLEnv = "GEOCONTEXT_ANALYSIS_URL"

	// DefaultUserAgent is the default User-Agent string. Nominatim's usage
	// policy requires an identifying agent.
	DefaultUserAgent = "geocontext-mcp/0.1.0"
)

var (
	// Global HTTP client with connection pooling. The analysis service can
	// stream for minutes, so there is no client-level timeout; callers bound
	// requests with contexts instead.
	httpClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	userAgent     = DefaultUserAgent
	userAgentLock sync.RWMutex
)

// SetUserAgent sets the User-Agent string sent with every request.
func SetUserAgent(ua string) {
	userAgentLock.Lock()
	defer userAgentLock.Unlock()
	userAgent = ua
}

// GetUserAgent returns the current User-Agent string.
func GetUserAgent() string {
	userAgentLock.RLock()
	defer userAgentLock.RUnlock()
	return userAgent
}

// Client returns the shared pooled HTTP client.
func Client() *http.Client {
	return httpClient
}

// NewRequest creates an HTTP request with the proper User-Agent header.
func NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", GetUserAgent())
	return req, nil
}

// DoRequest performs an HTTP request against the named service, waiting for
// its rate limit first.
func DoRequest(ctx context.Context, service string, req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", GetUserAgent())
	if err := WaitForService(ctx, service); err != nil {
		return nil, err
	}
	return httpClient.Do(req)
}

// ResolveAnalysisBaseURL picks the analysis backend origin: an explicit
// override wins, then the environment, then the fixed default.
func ResolveAnalysisBaseURL(override string) string {
	if override != "" {
		return override
	}
	if v := os.Getenv(AnalysisURLEnv); v != "" {
		return v
	}
	return DefaultAnalysisBaseURL
}
