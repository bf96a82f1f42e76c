package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NERVsystems/geocontext/pkg/geo"
	"github.com/NERVsystems/geocontext/pkg/search"
	"github.com/mark3labs/mcp-go/mcp"
)

// SearchPlacesInput defines the input parameters for place search
type SearchPlacesInput struct {
	Query string `json:"query"`
}

// SearchPlacesOutput defines the output format for place search
type SearchPlacesOutput struct {
	Places []Place `json:"places"`
}

// SearchPlacesTool returns a tool definition for free-text place search
func SearchPlacesTool() mcp.Tool {
	return mcp.NewTool("search_places",
		mcp.WithDescription("Search for places by free-text query, returning up to 5 candidates with coordinates and bounds"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The place name or address fragment to search for"),
		),
	)
}

// HandleSearchPlaces implements the place search functionality
func (r *Registry) HandleSearchPlaces(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "search_places")

	query := mcp.ParseString(req, "query", "")
	if query == "" {
		return ErrorResponse("Query must not be empty"), nil
	}

	// Short fragments never reach the network; the candidate list is
	// simply empty, matching the type-ahead behavior.
	if len([]rune(query)) < search.MinQueryLength {
		return resultJSON(SearchPlacesOutput{Places: []Place{}})
	}

	results, err := r.search.Search(ctx, query)
	if err != nil {
		logger.Error("place search failed", "query", query, "error", err)
		var se *search.StatusError
		if errors.As(err, &se) {
			guidance := GuidanceNominatimGeneral
			if se.StatusCode == http.StatusTooManyRequests {
				guidance = GuidanceNominatimRateLimit
			}
			return ErrorResponse(NewAPIError("Nominatim", se.StatusCode, "place search failed", guidance).Error()), nil
		}
		return ErrorResponse(NewAPIError("Nominatim", 0, "failed to reach the search service", GuidanceNetworkError).Error()), nil
	}

	places := make([]Place, 0, len(results))
	for _, res := range results {
		places = append(places, placeFromResult(res))
	}
	return resultJSON(SearchPlacesOutput{Places: places})
}

// FocusPlaceTool returns a tool definition for adopting a candidate as the
// map focus point
func FocusPlaceTool() mcp.Tool {
	return mcp.NewTool("focus_place",
		mcp.WithDescription("Adopt a search candidate's coordinates as the map focus point"),
		mcp.WithNumber("latitude",
			mcp.Required(),
			mcp.Description("The candidate's latitude"),
		),
		mcp.WithNumber("longitude",
			mcp.Required(),
			mcp.Description("The candidate's longitude"),
		),
	)
}

// HandleFocusPlace recenters the attached map view on the chosen candidate
func (r *Registry) HandleFocusPlace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	latitude := mcp.ParseFloat64(req, "latitude", 0)
	longitude := mcp.ParseFloat64(req, "longitude", 0)

	if latitude < -90 || latitude > 90 {
		return ErrorResponse("Latitude must be between -90 and 90"), nil
	}
	if longitude < -180 || longitude > 180 {
		return ErrorResponse("Longitude must be between -180 and 180"), nil
	}

	r.state.Focus(geo.Location{Latitude: latitude, Longitude: longitude})
	return mcp.NewToolResultText("Focus point adopted"), nil
}

// resultJSON marshals a tool output value into a text result.
func resultJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrorResponse("Failed to generate result"), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
