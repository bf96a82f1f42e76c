package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/NERVsystems/geocontext/pkg/analysis"
	"github.com/NERVsystems/geocontext/pkg/geo"
	"github.com/NERVsystems/geocontext/pkg/search"
	"github.com/NERVsystems/geocontext/pkg/selection"
	"github.com/NERVsystems/geocontext/pkg/testutil"
	"github.com/NERVsystems/geocontext/pkg/upstream"
	"github.com/mark3labs/mcp-go/mcp"
)

func init() {
	// Tests fire many requests; the production limits would serialize them.
	rl := upstream.GetRateLimiter()
	rl.Update(upstream.ServiceNominatim, 1000, 1000)
	rl.Update(upstream.ServiceAnalysis, 1000, 1000)
}

// callRequest builds a CallToolRequest the way the MCP server would.
func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments,omitempty"`
			Meta      *struct {
				ProgressToken mcp.ProgressToken `json:"progressToken,omitempty"`
			} `json:"_meta,omitempty"`
		}{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the first text content from a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("expected result, got nil")
	}
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			return text.Text
		}
	}
	t.Fatal("no text content in result")
	return ""
}

// newTestRegistry wires a registry to httptest backends for search and
// analysis.
func newTestRegistry(t *testing.T, searchHandler, analysisHandler http.HandlerFunc) *Registry {
	t.Helper()

	state := selection.NewState()
	state.SetLogger(testutil.DiscardLogger())

	searchClient := search.NewClient()
	searchClient.SetLogger(testutil.DiscardLogger())
	if searchHandler != nil {
		srv := httptest.NewServer(searchHandler)
		t.Cleanup(srv.Close)
		searchClient.SetBaseURL(srv.URL)
	}

	analysisBase := "http://127.0.0.1:0"
	if analysisHandler != nil {
		srv := httptest.NewServer(analysisHandler)
		t.Cleanup(srv.Close)
		analysisBase = srv.URL
	}
	orch := analysis.NewOrchestrator(analysis.NewClient(analysisBase))
	orch.SetLogger(testutil.DiscardLogger())

	return NewRegistry(testutil.DiscardLogger(), state, searchClient, orch)
}

func TestHandleSelectAreaRectangle(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	result, err := r.HandleSelectAreaRectangle(context.Background(), callRequest("select_area_rectangle", map[string]any{
		"north": 10.0, "south": 5.0, "east": 20.0, "west": 15.0,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out SelectionStatusOutput
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if !out.Selected {
		t.Error("expected selection to be reported")
	}
	if out.Source != "rectangle" {
		t.Errorf("source = %q, want %q", out.Source, "rectangle")
	}

	var feature geo.Feature
	if err := json.Unmarshal(out.Polygon, &feature); err != nil {
		t.Fatalf("polygon is not a GeoJSON feature: %v", err)
	}
	ring := feature.Geometry.Coordinates[0]
	if len(ring) != 5 {
		t.Fatalf("ring has %d points, want 5", len(ring))
	}
	if ring[0][0] != 15.0 || ring[0][1] != 5.0 {
		t.Errorf("ring start = %v, want [15 5]", ring[0])
	}
}

func TestHandleSelectAreaRectangleInvalid(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"north below south", map[string]any{"north": 1.0, "south": 5.0, "east": 2.0, "west": 1.0}},
		{"latitude out of range", map[string]any{"north": 95.0, "south": 5.0, "east": 2.0, "west": 1.0}},
		{"longitude out of range", map[string]any{"north": 10.0, "south": 5.0, "east": 200.0, "west": 1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := r.HandleSelectAreaRectangle(context.Background(), callRequest("select_area_rectangle", tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.IsError {
				t.Error("expected error result for invalid bounds")
			}
		})
	}
}

func TestHandleUploadAreaGeoJSON(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	doc := `{"type":"Feature","properties":{"tag":"verbatim"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}`
	result, err := r.HandleUploadAreaGeoJSON(context.Background(), callRequest("upload_area_geojson", map[string]any{
		"geojson": doc,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out SelectionStatusOutput
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if out.Source != "upload" {
		t.Errorf("source = %q, want %q", out.Source, "upload")
	}
	if string(out.Polygon) != doc {
		t.Errorf("polygon not passed through verbatim:\ngot  %s\nwant %s", out.Polygon, doc)
	}
}

func TestHandleUploadAreaGeoJSONInvalid(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	// A drawn rectangle must survive a rejected upload.
	if _, err := r.HandleSelectAreaRectangle(context.Background(), callRequest("select_area_rectangle", map[string]any{
		"north": 10.0, "south": 5.0, "east": 20.0, "west": 15.0,
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := r.HandleUploadAreaGeoJSON(context.Background(), callRequest("upload_area_geojson", map[string]any{
		"geojson": `{"type": "Feature",`,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for malformed document")
	}

	status, err := r.HandleSelectionStatus(context.Background(), callRequest("selection_status", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out SelectionStatusOutput
	if err := json.Unmarshal([]byte(resultText(t, status)), &out); err != nil {
		t.Fatalf("failed to parse status: %v", err)
	}
	if !out.Selected || out.Source != "rectangle" {
		t.Errorf("selection after rejected upload = %+v, want rectangle selection intact", out)
	}
}

func TestHandleClearArea(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	if _, err := r.HandleSelectAreaRectangle(context.Background(), callRequest("select_area_rectangle", map[string]any{
		"north": 10.0, "south": 5.0, "east": 20.0, "west": 15.0,
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.HandleClearArea(context.Background(), callRequest("clear_area", nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := r.HandleSelectionStatus(context.Background(), callRequest("selection_status", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out SelectionStatusOutput
	if err := json.Unmarshal([]byte(resultText(t, status)), &out); err != nil {
		t.Fatalf("failed to parse status: %v", err)
	}
	if out.Selected {
		t.Error("expected no selection after clear")
	}
}

func TestHandleSearchPlaces(t *testing.T) {
	var calls atomic.Int64
	fixture := `[{"place_id": 101, "display_name": "Lucerne, Switzerland", "lat": "47.05", "lon": "8.30", "boundingbox": ["46.9", "47.1", "8.2", "8.4"]}]`
	r := newTestRegistry(t, func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, fixture)
	}, nil)

	t.Run("short query stays local", func(t *testing.T) {
		result, err := r.HandleSearchPlaces(context.Background(), callRequest("search_places", map[string]any{"query": "ab"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var out SearchPlacesOutput
		if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
			t.Fatalf("failed to parse result: %v", err)
		}
		if len(out.Places) != 0 {
			t.Errorf("got %d places, want 0", len(out.Places))
		}
		if calls.Load() != 0 {
			t.Errorf("short query reached the network (%d calls)", calls.Load())
		}
	})

	t.Run("empty query is rejected", func(t *testing.T) {
		result, err := r.HandleSearchPlaces(context.Background(), callRequest("search_places", map[string]any{"query": ""}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error result for empty query")
		}
	})

	t.Run("candidates returned", func(t *testing.T) {
		result, err := r.HandleSearchPlaces(context.Background(), callRequest("search_places", map[string]any{"query": "lucerne"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var out SearchPlacesOutput
		if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
			t.Fatalf("failed to parse result: %v", err)
		}
		if len(out.Places) != 1 {
			t.Fatalf("got %d places, want 1", len(out.Places))
		}
		p := out.Places[0]
		if p.Name != "Lucerne, Switzerland" {
			t.Errorf("name = %q", p.Name)
		}
		if p.Location.Latitude != 47.05 || p.Location.Longitude != 8.30 {
			t.Errorf("location = %+v", p.Location)
		}
		if p.BoundingBox.North != 47.1 || p.BoundingBox.West != 8.2 {
			t.Errorf("bounding box = %+v", p.BoundingBox)
		}
	})
}

func TestHandleSearchPlacesUpstreamFailure(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		wantGuidance string
	}{
		{"service unavailable", http.StatusServiceUnavailable, GuidanceNominatimGeneral},
		{"rate limited", http.StatusTooManyRequests, GuidanceNominatimRateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t, func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(tt.status)
			}, nil)

			result, err := r.HandleSearchPlaces(context.Background(), callRequest("search_places", map[string]any{"query": "lucerne"}))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected error result")
			}
			text := resultText(t, result)
			if !strings.Contains(text, fmt.Sprintf("Nominatim API error (%d)", tt.status)) {
				t.Errorf("expected structured upstream error, got: %s", text)
			}
			if !strings.Contains(text, tt.wantGuidance) {
				t.Errorf("expected guidance %q in message: %s", tt.wantGuidance, text)
			}
		})
	}
}

type recordedFocus struct {
	center geo.Location
	zoom   int
}

type focusRecorder struct {
	last *recordedFocus
}

func (f *focusRecorder) Recenter(center geo.Location, zoom int) {
	f.last = &recordedFocus{center: center, zoom: zoom}
}

func TestHandleFocusPlace(t *testing.T) {
	r := newTestRegistry(t, nil, nil)
	rec := &focusRecorder{}
	r.state.AttachMapView(rec)

	result, err := r.HandleFocusPlace(context.Background(), callRequest("focus_place", map[string]any{
		"latitude": 47.05, "longitude": 8.30,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if rec.last == nil {
		t.Fatal("map view was not recentered")
	}
	if rec.last.center.Latitude != 47.05 || rec.last.center.Longitude != 8.30 {
		t.Errorf("center = %+v", rec.last.center)
	}
	if rec.last.zoom != selection.FocusZoom {
		t.Errorf("zoom = %d, want %d", rec.last.zoom, selection.FocusZoom)
	}

	bad, err := r.HandleFocusPlace(context.Background(), callRequest("focus_place", map[string]any{
		"latitude": 95.0, "longitude": 8.30,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bad.IsError {
		t.Error("expected error result for out-of-range latitude")
	}
}

func TestHandleAnalyzeAreaNoSelection(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	result, err := r.HandleAnalyzeArea(context.Background(), callRequest("analyze_area", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result without a selection")
	}
	if !strings.Contains(resultText(t, result), "No area is selected") {
		t.Errorf("unexpected message: %s", resultText(t, result))
	}
}

func TestHandleAnalyzeArea(t *testing.T) {
	payload := `{"summary": {"ndvi": {"annual_mean": 0.61}}}`
	r := newTestRegistry(t, nil, func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/generate-context" {
			http.NotFound(w, req)
			return
		}
		fmt.Fprint(w, "data: sampling rasters\n")
		fmt.Fprintf(w, "data: %s\n", payload)
	})

	if _, err := r.HandleSelectAreaRectangle(context.Background(), callRequest("select_area_rectangle", map[string]any{
		"north": 10.0, "south": 5.0, "east": 20.0, "west": 15.0,
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := r.HandleAnalyzeArea(context.Background(), callRequest("analyze_area", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}

	var out AnalyzeAreaOutput
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if out.Phase != "done" {
		t.Errorf("phase = %q, want %q", out.Phase, "done")
	}
	if out.SessionID == "" {
		t.Error("expected a session id")
	}
	want := "Vegetation health: moderate (NDVI ≈ 0.61, scale -1 to +1)."
	if out.Summary != want {
		t.Errorf("summary = %q, want %q", out.Summary, want)
	}
	var echoed struct {
		Summary struct {
			NDVI struct {
				AnnualMean float64 `json:"annual_mean"`
			} `json:"ndvi"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(out.Payload, &echoed); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if echoed.Summary.NDVI.AnnualMean != 0.61 {
		t.Errorf("payload NDVI = %v", echoed.Summary.NDVI.AnnualMean)
	}
}

func TestHandleAnalyzeAreaFailure(t *testing.T) {
	r := newTestRegistry(t, nil, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	if _, err := r.HandleSelectAreaRectangle(context.Background(), callRequest("select_area_rectangle", map[string]any{
		"north": 10.0, "south": 5.0, "east": 20.0, "west": 15.0,
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := r.HandleAnalyzeArea(context.Background(), callRequest("analyze_area", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	text := resultText(t, result)
	if !strings.Contains(text, "GeoContext API error (502)") {
		t.Errorf("expected structured upstream error, got: %s", text)
	}
	if !strings.Contains(text, "Analysis service error: 502") {
		t.Errorf("unexpected message: %s", text)
	}
	if !strings.Contains(text, GuidanceAnalysisGeneral) {
		t.Errorf("expected guidance in message: %s", text)
	}
}

func TestHandleAnalyzeAreaNoSummary(t *testing.T) {
	r := newTestRegistry(t, nil, func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, "data: still working\n")
		fmt.Fprint(w, "data: almost there\n")
	})

	if _, err := r.HandleSelectAreaRectangle(context.Background(), callRequest("select_area_rectangle", map[string]any{
		"north": 10.0, "south": 5.0, "east": 20.0, "west": 15.0,
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := r.HandleAnalyzeArea(context.Background(), callRequest("analyze_area", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	text := resultText(t, result)
	if !strings.Contains(text, "No JSON summary received") {
		t.Errorf("unexpected message: %s", text)
	}
	if !strings.Contains(text, GuidanceDataError) {
		t.Errorf("expected guidance %q in message: %s", GuidanceDataError, text)
	}
	// No HTTP status was involved, so none is reported.
	if strings.Contains(text, "(0)") {
		t.Errorf("message should not carry a zero status: %s", text)
	}
}

func TestGetToolDefinitions(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	defs := r.GetToolDefinitions()
	want := []string{
		"search_places",
		"focus_place",
		"select_area_rectangle",
		"upload_area_geojson",
		"clear_area",
		"selection_status",
		"analyze_area",
	}
	if len(defs) != len(want) {
		t.Fatalf("got %d tool definitions, want %d", len(defs), len(want))
	}
	for i, def := range defs {
		if def.Name != want[i] {
			t.Errorf("definition %d = %q, want %q", i, def.Name, want[i])
		}
		if def.Handler == nil {
			t.Errorf("definition %q has nil handler", def.Name)
		}
		if def.Tool.Name != def.Name {
			t.Errorf("tool name %q does not match definition name %q", def.Tool.Name, def.Name)
		}
	}
}
