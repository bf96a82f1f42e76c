// Package tools provides the GeoContext MCP tool implementations.
package tools

import (
	"github.com/NERVsystems/geocontext/pkg/geo"
	"github.com/NERVsystems/geocontext/pkg/search"
)

// Place represents a named location candidate with coordinates
type Place struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Location    geo.Location    `json:"location"`
	BoundingBox geo.BoundingBox `json:"bounding_box"`
}

// placeFromResult converts a search result into the tool output shape.
func placeFromResult(r search.Result) Place {
	return Place{
		ID:          r.PlaceID,
		Name:        r.DisplayName,
		Location:    r.Location(),
		BoundingBox: r.BoundingBox,
	}
}
