// Package server provides the MCP server implementation for the GeoContext
// area selection and analysis pipeline.
package server

import (
	"log/slog"

	"github.com/NERVsystems/geocontext/pkg/analysis"
	"github.com/NERVsystems/geocontext/pkg/search"
	"github.com/NERVsystems/geocontext/pkg/selection"
	"github.com/NERVsystems/geocontext/pkg/tools"
	"github.com/NERVsystems/geocontext/pkg/tools/prompts"
	"github.com/mark3labs/mcp-go/server"
)

const (
	// ServerName is the name of the MCP server
	ServerName = "geocontext-mcp-server"

	// ServerVersion is the version of the MCP server
	ServerVersion = "0.1.0"
)

// Server encapsulates the MCP server with the GeoContext pipeline wired in.
type Server struct {
	srv          *server.MCPServer
	search       *search.Client
	orchestrator *analysis.Orchestrator
}

// NewServer creates a GeoContext MCP server with all tools registered.
// analysisURL is the base URL of the streaming analysis backend.
func NewServer(analysisURL string) (*Server, error) {
	logger := slog.Default()
	logger.Info("initializing GeoContext MCP server",
		"name", ServerName,
		"version", ServerVersion,
		"analysis_url", analysisURL)

	srv := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	// Wire the pipeline: selection state, place search, and the analysis
	// orchestrator over the shared backend client.
	state := selection.NewState()
	state.SetLogger(logger)

	searchClient := search.NewClient()
	searchClient.SetLogger(logger)

	orchestrator := analysis.NewOrchestrator(analysis.NewClient(analysisURL))
	orchestrator.SetLogger(logger)

	registry := tools.NewRegistry(logger, state, searchClient, orchestrator)
	registry.RegisterTools(srv)
	prompts.RegisterPipelinePrompts(srv)

	return &Server{srv: srv, search: searchClient, orchestrator: orchestrator}, nil
}

// Run starts the MCP server using stdin/stdout for communication.
func (s *Server) Run() error {
	defer s.orchestrator.Stop()
	defer s.search.Close()
	return server.ServeStdio(s.srv)
}
