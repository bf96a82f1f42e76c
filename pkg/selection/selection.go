// Package selection tracks the user's area of interest. Three independent
// input sources feed it: place search (focus point), free-hand rectangle
// drawing, and GeoJSON upload. It reconciles the spatial sources into the
// one canonical polygon analysis requests are built from.
package selection

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/NERVsystems/geocontext/pkg/geo"
)

// FocusZoom is the map zoom level adopted when the user picks a search
// candidate.
const FocusZoom = 12

// DrawEvents is the capability interface the drawing widget drives. The
// core registers for these events once and holds no reference to the
// widget's internals.
type DrawEvents interface {
	// ShapeCreated delivers the bounds of a completed rectangle. Each new
	// rectangle replaces the previous one wholesale.
	ShapeCreated(bbox geo.BoundingBox)

	// ShapeDeleted signals that the drawn shape was removed.
	ShapeDeleted()
}

// MapView is the command interface back to the map widget.
type MapView interface {
	Recenter(center geo.Location, zoom int)
}

// UploadParseError reports an invalid uploaded file. It is surfaced as a
// blocking alert; the previous upload state stays unchanged.
type UploadParseError struct {
	Err error
}

func (e *UploadParseError) Error() string {
	return fmt.Sprintf("uploaded file is not valid GeoJSON: %v", e.Err)
}

func (e *UploadParseError) Unwrap() error { return e.Err }

// State holds the current area selection. Uploaded geometry takes priority
// over a drawn rectangle; the zero box is the cleared rectangle sentinel.
type State struct {
	mu       sync.Mutex
	logger   *slog.Logger
	bbox     geo.BoundingBox
	uploaded geo.RequestPolygon
	view     MapView
}

var _ DrawEvents = (*State)(nil)

// NewState creates an empty selection.
func NewState() *State {
	return &State{logger: slog.Default()}
}

// SetLogger sets the logger for the selection state.
func (s *State) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// AttachMapView registers the map command interface. Registered once at
// wiring time; a nil view disables recenter commands.
func (s *State) AttachMapView(view MapView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = view
}

// ShapeCreated replaces the rectangle selection with bbox.
func (s *State) ShapeCreated(bbox geo.BoundingBox) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bbox = bbox
	s.logger.Debug("rectangle selected", "bbox", bbox.String())
}

// ShapeDeleted resets the rectangle to the zero box.
func (s *State) ShapeDeleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bbox = geo.BoundingBox{}
	s.logger.Debug("rectangle cleared")
}

// SetUploaded stores uploaded geometry after checking it parses as JSON.
// On failure the previous upload is kept and an UploadParseError returned.
func (s *State) SetUploaded(data []byte) error {
	if !json.Valid(data) {
		return &UploadParseError{Err: fmt.Errorf("malformed JSON")}
	}
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return &UploadParseError{Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = append(geo.RequestPolygon(nil), data...)
	s.logger.Info("geometry uploaded", "bytes", len(data))
	return nil
}

// ClearUploaded removes any uploaded geometry.
func (s *State) ClearUploaded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = nil
}

// Clear removes both the uploaded geometry and the drawn rectangle.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = nil
	s.bbox = geo.BoundingBox{}
	s.logger.Debug("selection cleared")
}

// Focus recenters the map on a chosen point, e.g. a selected search
// candidate.
func (s *State) Focus(center geo.Location) {
	s.mu.Lock()
	view := s.view
	s.mu.Unlock()
	if view != nil {
		view.Recenter(center, FocusZoom)
	}
}

// BoundingBox returns the current rectangle (possibly the zero box).
func (s *State) BoundingBox() geo.BoundingBox {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bbox
}

// HasUpload reports whether uploaded geometry is set.
func (s *State) HasUpload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploaded != nil
}

// Selected returns the canonical request polygon for the current
// selection, or nil when no usable area is selected.
func (s *State) Selected() geo.RequestPolygon {
	s.mu.Lock()
	defer s.mu.Unlock()
	return geo.Normalize(s.uploaded, s.bbox)
}
