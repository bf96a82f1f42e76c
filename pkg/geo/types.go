// Package geo provides the geographic types and geometry normalization used
// throughout the pipeline. It centralizes location-based data structures to
// ensure consistency across the codebase.
package geo

import "fmt"

// Location represents a geographic coordinate (latitude and longitude)
// with standardized JSON field names.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BoundingBox represents a rectangular geographic area delimited by its
// four edges, in degrees. The draw-tool boundary delivers one of these on
// rectangle completion and the zero box on shape deletion, so the zero
// value is meaningful: it is the "cleared" sentinel, not a valid area.
type BoundingBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// IsZero reports whether the box is the all-zeros cleared sentinel.
func (bb BoundingBox) IsZero() bool {
	return bb.North == 0 && bb.South == 0 && bb.East == 0 && bb.West == 0
}

// Center returns the midpoint of the box, for recentering a map view on a
// selected area.
func (bb BoundingBox) Center() Location {
	return Location{
		Latitude:  (bb.North + bb.South) / 2,
		Longitude: (bb.East + bb.West) / 2,
	}
}

// String returns a compact representation of the box edges.
func (bb BoundingBox) String() string {
	return fmt.Sprintf("(N%f,S%f,E%f,W%f)", bb.North, bb.South, bb.East, bb.West)
}

// Valid reports whether the box satisfies south <= north and west <= east.
// The normalizer does not require this; it exists as an optional hardening
// check for callers that want to reject degenerate rectangles early.
func (bb BoundingBox) Valid() bool {
	return bb.South <= bb.North && bb.West <= bb.East
}
