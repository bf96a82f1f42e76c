// Package search implements place lookup against the Nominatim text-search
// endpoint, plus the debounced session used for type-ahead queries.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/NERVsystems/geocontext/pkg/cache"
	"github.com/NERVsystems/geocontext/pkg/geo"
	"github.com/NERVsystems/geocontext/pkg/upstream"
)

const (
	// MinQueryLength is the minimum number of characters before a query is
	// allowed to reach the network.
	MinQueryLength = 3

	// MaxResults caps the number of candidates requested per lookup.
	MaxResults = 5
)

// Result is one candidate place. Ordering from the service is preserved;
// uniqueness is keyed by PlaceID.
type Result struct {
	PlaceID     string          `json:"place_id"`
	DisplayName string          `json:"display_name"`
	Lat         float64         `json:"lat"`
	Lon         float64         `json:"lon"`
	BoundingBox geo.BoundingBox `json:"bounding_box"`
}

// Location returns the candidate's coordinates, the focus point a consumer
// adopts on selection.
func (r Result) Location() geo.Location {
	return geo.Location{Latitude: r.Lat, Longitude: r.Lon}
}

// Client performs place searches against Nominatim with rate limiting and
// a short-lived response cache.
type Client struct {
	logger  *slog.Logger
	baseURL string
	cache   *cache.TTLCache[string, []Result]
}

// NewClient creates a search client with the default endpoint.
func NewClient() *Client {
	return &Client{
		logger:  slog.Default(),
		baseURL: upstream.NominatimBaseURL,
		// Identical queries repeat constantly while a user types and
		// backspaces; a few minutes of caching keeps us inside the
		// Nominatim usage policy.
		cache: cache.New[string, []Result](5*time.Minute, time.Minute, 500),
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// SetBaseURL overrides the search endpoint, e.g. for a self-hosted
// Nominatim or a test server.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// Close releases the client's background resources. Cached lookups keep
// working afterwards; entries then expire lazily on Get.
func (c *Client) Close() {
	c.cache.Stop()
}

// StatusError reports a non-OK response status from the search service.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search service returned status %d", e.StatusCode)
}

// Search issues a single lookup and returns at most MaxResults candidates
// with address detail, in service order.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if cached, ok := c.cache.Get(query); ok {
		return cached, nil
	}

	reqURL, err := url.Parse(fmt.Sprintf("%s/search", c.baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse search URL: %w", err)
	}
	q := reqURL.Query()
	q.Add("format", "json")
	q.Add("q", query)
	q.Add("limit", strconv.Itoa(MaxResults))
	q.Add("addressdetails", "1")
	reqURL.RawQuery = q.Encode()

	req, err := upstream.NewRequest(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}

	resp, err := upstream.DoRequest(ctx, upstream.ServiceNominatim, req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	// Nominatim encodes numbers as strings and the bounding box as
	// [south, north, west, east].
	var raw []struct {
		PlaceID     json.Number `json:"place_id"`
		DisplayName string      `json:"display_name"`
		Lat         string      `json:"lat"`
		Lon         string      `json:"lon"`
		BoundingBox []string    `json:"boundingbox"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]Result, 0, len(raw))
	for _, r := range raw {
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			c.logger.Debug("skipping result with bad latitude", "lat", r.Lat)
			continue
		}
		lon, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			c.logger.Debug("skipping result with bad longitude", "lon", r.Lon)
			continue
		}
		res := Result{
			PlaceID:     r.PlaceID.String(),
			DisplayName: r.DisplayName,
			Lat:         lat,
			Lon:         lon,
		}
		if len(r.BoundingBox) == 4 {
			south, _ := strconv.ParseFloat(r.BoundingBox[0], 64)
			north, _ := strconv.ParseFloat(r.BoundingBox[1], 64)
			west, _ := strconv.ParseFloat(r.BoundingBox[2], 64)
			east, _ := strconv.ParseFloat(r.BoundingBox[3], 64)
			res.BoundingBox = geo.BoundingBox{North: north, South: south, East: east, West: west}
		}
		results = append(results, res)
	}

	c.cache.Set(query, results)
	return results, nil
}
