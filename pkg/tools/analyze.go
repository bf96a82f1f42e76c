package tools

import (
	"context"
	"encoding/json"

	"github.com/NERVsystems/geocontext/pkg/analysis"
	"github.com/NERVsystems/geocontext/pkg/sse"
	"github.com/mark3labs/mcp-go/mcp"
)

// AnalyzeAreaOutput carries the terminal state of an analysis session.
type AnalyzeAreaOutput struct {
	SessionID string          `json:"session_id"`
	Phase     string          `json:"phase"`
	Summary   string          `json:"summary,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// AnalyzeAreaTool returns a tool definition for running analysis over the selection
func AnalyzeAreaTool() mcp.Tool {
	return mcp.NewTool("analyze_area",
		mcp.WithDescription("Run the streaming geo-context analysis (elevation, climate, vegetation, land cover) over the currently selected area"),
	)
}

// HandleAnalyzeArea runs one analysis session over the canonical polygon
// and returns the rendered summary together with the raw payload.
func (r *Registry) HandleAnalyzeArea(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "analyze_area")

	polygon := r.state.Selected()
	if polygon == nil {
		return ErrorResponse("No area is selected. Select a rectangle or upload GeoJSON first"), nil
	}

	snap, ok := r.orchestrator.Run(ctx, polygon)
	if !ok {
		return ErrorResponse("No area is selected. Select a rectangle or upload GeoJSON first"), nil
	}

	if snap.Phase == analysis.PhaseFailed {
		logger.Error("analysis failed", "session", snap.SessionID, "error", snap.Err)
		return ErrorResponse(analysisError(snap).Error()), nil
	}

	return resultJSON(AnalyzeAreaOutput{
		SessionID: snap.SessionID,
		Phase:     snap.Phase.String(),
		Summary:   snap.Summary,
		Payload:   json.RawMessage(snap.Raw),
	})
}

// analysisError wraps a failed session as a structured upstream error,
// picking recovery guidance by failure class. The session's error text is
// carried verbatim as the message.
func analysisError(snap analysis.Snapshot) *APIError {
	guidance := GuidanceAnalysisGeneral
	switch snap.Err {
	case sse.ErrNoSummary.Error():
		guidance = GuidanceDataError
	case context.DeadlineExceeded.Error():
		guidance = GuidanceAnalysisTimeout
	}
	return NewAPIError("GeoContext", snap.ErrStatus, snap.Err, guidance)
}
