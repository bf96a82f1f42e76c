// Package tools provides the GeoContext MCP tool implementations: place
// search, area selection, and streaming analysis over the selected area.
package tools

import (
	"context"
	"log/slog"

	"github.com/NERVsystems/geocontext/pkg/analysis"
	"github.com/NERVsystems/geocontext/pkg/search"
	"github.com/NERVsystems/geocontext/pkg/selection"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Registry holds the pipeline components the MCP tools operate on.
type Registry struct {
	logger       *slog.Logger
	state        *selection.State
	search       *search.Client
	orchestrator *analysis.Orchestrator
}

// NewRegistry creates a new MCP tool registry around the pipeline.
func NewRegistry(logger *slog.Logger, state *selection.State, searchClient *search.Client, orchestrator *analysis.Orchestrator) *Registry {
	return &Registry{
		logger:       logger,
		state:        state,
		search:       searchClient,
		orchestrator: orchestrator,
	}
}

// ToolDefinition represents a GeoContext MCP tool definition.
type ToolDefinition struct {
	Name        string
	Description string
	Tool        mcp.Tool
	Handler     func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// GetToolDefinitions returns all GeoContext MCP tool definitions.
func (r *Registry) GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		// Place search
		{
			Name:        "search_places",
			Description: "Search for places by free-text query",
			Tool:        SearchPlacesTool(),
			Handler:     r.HandleSearchPlaces,
		},
		{
			Name:        "focus_place",
			Description: "Adopt a search candidate as the map focus point",
			Tool:        FocusPlaceTool(),
			Handler:     r.HandleFocusPlace,
		},

		// Area selection
		{
			Name:        "select_area_rectangle",
			Description: "Select a rectangular area of interest by its bounds",
			Tool:        SelectAreaRectangleTool(),
			Handler:     r.HandleSelectAreaRectangle,
		},
		{
			Name:        "upload_area_geojson",
			Description: "Provide an area of interest as arbitrary GeoJSON",
			Tool:        UploadAreaGeoJSONTool(),
			Handler:     r.HandleUploadAreaGeoJSON,
		},
		{
			Name:        "clear_area",
			Description: "Clear the current area selection",
			Tool:        ClearAreaTool(),
			Handler:     r.HandleClearArea,
		},
		{
			Name:        "selection_status",
			Description: "Show the canonical polygon for the current selection",
			Tool:        SelectionStatusTool(),
			Handler:     r.HandleSelectionStatus,
		},

		// Analysis
		{
			Name:        "analyze_area",
			Description: "Run the streaming geo-context analysis over the selected area",
			Tool:        AnalyzeAreaTool(),
			Handler:     r.HandleAnalyzeArea,
		},
	}
}

// RegisterTools registers all tools with the MCP server.
func (r *Registry) RegisterTools(mcpServer *server.MCPServer) {
	for _, def := range r.GetToolDefinitions() {
		r.logger.Info("registering tool", "name", def.Name)
		mcpServer.AddTool(def.Tool, def.Handler)
	}
}
