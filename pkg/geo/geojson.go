package geo

import "encoding/json"

// RequestPolygon is the canonical GeoJSON shape sent to the analysis
// service. It is kept as raw JSON on purpose: uploaded geometry must be
// forwarded byte-for-byte, and the service accepts any valid GeoJSON.
type RequestPolygon = json.RawMessage

// Feature is a GeoJSON Feature wrapping a single geometry.
// It follows the standard GeoJSON structure.
type Feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   Geometry       `json:"geometry"`
}

// Geometry is a GeoJSON geometry. Coordinates are nested per the Polygon
// layout: rings of [lon, lat] pairs.
type Geometry struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// PolygonFromBoundingBox builds a closed rectangular Feature<Polygon> from
// the box corners. The ring runs (west,south) -> (east,south) ->
// (east,north) -> (west,north) and closes back on the first point, five
// coordinate pairs in total.
func PolygonFromBoundingBox(bb BoundingBox) Feature {
	ring := [][]float64{
		{bb.West, bb.South},
		{bb.East, bb.South},
		{bb.East, bb.North},
		{bb.West, bb.North},
		{bb.West, bb.South},
	}
	return Feature{
		Type:       "Feature",
		Properties: map[string]any{},
		Geometry: Geometry{
			Type:        "Polygon",
			Coordinates: [][][]float64{ring},
		},
	}
}
