// Package prompts provides prompt templates for use with the MCP server.
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterPipelinePrompts registers the area-selection and analysis prompts
// with the MCP server
func RegisterPipelinePrompts(s *server.MCPServer) {
	// Register the main pipeline prompt
	s.AddPrompt(mcp.NewPrompt("area_analysis",
		mcp.WithPromptDescription("Instructions for selecting an area and running the geo-context analysis"),
	), AreaAnalysisPromptHandler)

	// Register examples for area selection
	s.AddPrompt(mcp.NewPrompt("area_selection_examples",
		mcp.WithPromptDescription("Examples of properly formed area selections"),
	), AreaSelectionExamplesHandler)
}

// AreaAnalysisPromptHandler returns the main prompt for the analysis workflow
func AreaAnalysisPromptHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	systemPrompt := `You have access to tools for selecting a geographic area and running a
streaming environmental analysis over it. When using these tools:

1. Establish an area first: either select_area_rectangle with north/south/east/west
   bounds, or upload_area_geojson with a complete GeoJSON document
2. An uploaded document always takes precedence over a drawn rectangle; use
   clear_area to start over
3. Use search_places to locate a region by name, then focus_place to adopt a
   candidate's coordinates before drawing a rectangle around it
4. Check selection_status to see the exact polygon analysis will run over
5. Only then call analyze_area; it blocks until the backend finishes and
   returns both a readable summary and the raw payload

ERROR HANDLING GUIDELINES:
1. "No area is selected" means no rectangle or upload exists; select one first
2. An invalid GeoJSON upload leaves the previous selection unchanged
3. Analysis failures include recovery guidance; a smaller area often helps
4. Individual summary sections may be missing when a data source had no
   coverage for the area; this is not an error`

	return mcp.NewGetPromptResult(
		"Area Analysis Usage Guidelines",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(
				mcp.RoleAssistant,
				mcp.NewTextContent(systemPrompt),
			),
		},
	), nil
}

// AreaSelectionExamplesHandler returns examples for the selection tools
func AreaSelectionExamplesHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	examplesPrompt := `EXAMPLES OF EFFECTIVE AREA SELECTION:

User: "Analyze the area around Lucerne"
AI: *uses search_places with "Lucerne", then focus_place with the top
    candidate, then select_area_rectangle with bounds around its bounding box,
    then analyze_area*

User: "Here is my field boundary as GeoJSON, what does the land look like?"
AI: *uses upload_area_geojson with the document verbatim, then analyze_area*

User: "Never mind that shape, use this rectangle instead"
AI: *uses clear_area first so the old upload cannot shadow the rectangle,
    then select_area_rectangle*

CORRECTION PATTERN:
1. If analyze_area reports no selected area, call selection_status to inspect
   the state
2. If an upload was rejected, fix the document rather than retrying verbatim
3. Keep rectangles modest; the backend samples satellite rasters and very
   large areas are slow`

	return mcp.NewGetPromptResult(
		"Area Selection Examples",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(
				mcp.RoleAssistant,
				mcp.NewTextContent(examplesPrompt),
			),
		},
	), nil
}
