package geo

import "encoding/json"

// Normalize reconciles the two spatial input sources into the one canonical
// polygon for an analysis request.
//
// Uploaded geometry always wins and is returned unchanged; the service is
// expected to accept any valid GeoJSON, so no validation or re-encoding is
// performed on it. Otherwise a drawn rectangle becomes a closed
// Feature<Polygon> ring. The zero box is the draw tool's "shape deleted"
// sentinel and produces no polygon.
//
// A nil result means no usable area is selected and analysis must not run.
func Normalize(uploaded RequestPolygon, bbox BoundingBox) RequestPolygon {
	if len(uploaded) > 0 {
		return uploaded
	}
	if bbox.IsZero() {
		return nil
	}
	data, err := json.Marshal(PolygonFromBoundingBox(bbox))
	if err != nil {
		// Feature marshals from plain floats and maps; this cannot fail.
		return nil
	}
	return data
}
