package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/NERVsystems/geocontext/pkg/geo"
	"github.com/NERVsystems/geocontext/pkg/selection"
	"github.com/mark3labs/mcp-go/mcp"
)

// SelectionStatusOutput describes the current canonical selection.
type SelectionStatusOutput struct {
	Selected bool            `json:"selected"`
	Source   string          `json:"source,omitempty"`
	Polygon  json.RawMessage `json:"polygon,omitempty"`
}

// SelectAreaRectangleTool returns a tool definition for rectangular area selection
func SelectAreaRectangleTool() mcp.Tool {
	return mcp.NewTool("select_area_rectangle",
		mcp.WithDescription("Select a rectangular area of interest by its north, south, east and west bounds"),
		mcp.WithNumber("north",
			mcp.Required(),
			mcp.Description("Northern latitude bound"),
		),
		mcp.WithNumber("south",
			mcp.Required(),
			mcp.Description("Southern latitude bound"),
		),
		mcp.WithNumber("east",
			mcp.Required(),
			mcp.Description("Eastern longitude bound"),
		),
		mcp.WithNumber("west",
			mcp.Required(),
			mcp.Description("Western longitude bound"),
		),
	)
}

// HandleSelectAreaRectangle records a drawn rectangle as the area of interest
func (r *Registry) HandleSelectAreaRectangle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "select_area_rectangle")

	box := geo.BoundingBox{
		North: mcp.ParseFloat64(req, "north", 0),
		South: mcp.ParseFloat64(req, "south", 0),
		East:  mcp.ParseFloat64(req, "east", 0),
		West:  mcp.ParseFloat64(req, "west", 0),
	}

	if !box.Valid() ||
		box.North > 90 || box.South < -90 ||
		box.East > 180 || box.West < -180 {
		return ErrorResponse("Bounds are invalid: latitudes must be within ±90, longitudes within ±180, and north must be above south"), nil
	}

	r.state.ShapeCreated(box)
	logger.Debug("rectangle selected", "box", box.String())

	return r.selectionStatus()
}

// UploadAreaGeoJSONTool returns a tool definition for GeoJSON uploads
func UploadAreaGeoJSONTool() mcp.Tool {
	return mcp.NewTool("upload_area_geojson",
		mcp.WithDescription("Provide an area of interest as arbitrary GeoJSON; it takes precedence over any drawn rectangle"),
		mcp.WithString("geojson",
			mcp.Required(),
			mcp.Description("The GeoJSON document describing the area"),
		),
	)
}

// HandleUploadAreaGeoJSON stores an uploaded GeoJSON document as the area of interest
func (r *Registry) HandleUploadAreaGeoJSON(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "upload_area_geojson")

	doc := mcp.ParseString(req, "geojson", "")
	if doc == "" {
		return ErrorResponse("GeoJSON document must not be empty"), nil
	}

	if err := r.state.SetUploaded([]byte(doc)); err != nil {
		var parseErr *selection.UploadParseError
		if errors.As(err, &parseErr) {
			logger.Warn("rejected uploaded document", "error", err)
			return ErrorResponse("The uploaded document is not valid GeoJSON; the previous selection is unchanged"), nil
		}
		return ErrorResponse("Failed to store uploaded area"), nil
	}

	return r.selectionStatus()
}

// ClearAreaTool returns a tool definition for clearing the selection
func ClearAreaTool() mcp.Tool {
	return mcp.NewTool("clear_area",
		mcp.WithDescription("Clear the drawn rectangle and any uploaded GeoJSON"),
	)
}

// HandleClearArea removes the current area selection entirely
func (r *Registry) HandleClearArea(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r.state.Clear()
	return mcp.NewToolResultText("Area selection cleared"), nil
}

// SelectionStatusTool returns a tool definition for inspecting the selection
func SelectionStatusTool() mcp.Tool {
	return mcp.NewTool("selection_status",
		mcp.WithDescription("Show the canonical polygon that analysis would run over"),
	)
}

// HandleSelectionStatus reports the canonical polygon for the current selection
func (r *Registry) HandleSelectionStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return r.selectionStatus()
}

// selectionStatus renders the reconciled selection as a tool result.
func (r *Registry) selectionStatus() (*mcp.CallToolResult, error) {
	polygon := r.state.Selected()
	if polygon == nil {
		return resultJSON(SelectionStatusOutput{Selected: false})
	}

	source := "rectangle"
	if r.state.HasUpload() {
		source = "upload"
	}
	return resultJSON(SelectionStatusOutput{
		Selected: true,
		Source:   source,
		Polygon:  json.RawMessage(polygon),
	})
}
