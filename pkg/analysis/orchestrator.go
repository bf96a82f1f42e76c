package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/NERVsystems/geocontext/pkg/geo"
	"github.com/NERVsystems/geocontext/pkg/sse"
	"github.com/google/uuid"
)

// Phase is the lifecycle state of an analysis session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRequesting
	PhaseStreaming
	PhaseDone
	PhaseFailed
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRequesting:
		return "requesting"
	case PhaseStreaming:
		return "streaming"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of the orchestrator for the
// presentation layer.
type Snapshot struct {
	Phase     Phase
	SessionID string
	// Summary is the rendered natural-language text, present when Done.
	Summary string
	// Raw is the pretty-printed terminal payload, present when Done.
	Raw string
	// Err is the user-visible failure text, present when Failed.
	Err string
	// ErrStatus is the upstream HTTP status behind the failure, when the
	// failure was a rejected request. Zero otherwise.
	ErrStatus int
}

// Orchestrator runs analysis sessions over the state machine
// Idle -> Requesting -> Streaming -> {Done | Failed}. Starting a new
// session supersedes any prior one: the prior request is canceled and a
// late completion carrying a stale generation can never overwrite newer
// output. A failed or completed session is terminal until re-triggered;
// there are no automatic retries.
type Orchestrator struct {
	client *Client
	logger *slog.Logger

	mu        sync.Mutex
	gen       uint64
	cancel    context.CancelFunc
	phase     Phase
	sessionID string
	summary   string
	raw       string
	errText   string
	errStatus int
}

// NewOrchestrator creates an orchestrator around client.
func NewOrchestrator(client *Client) *Orchestrator {
	return &Orchestrator{
		client: client,
		logger: slog.Default(),
	}
}

// SetLogger sets the logger for the orchestrator.
func (o *Orchestrator) SetLogger(logger *slog.Logger) {
	o.logger = logger
}

// Snapshot returns the current session state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		Phase:     o.phase,
		SessionID: o.sessionID,
		Summary:   o.summary,
		Raw:       o.raw,
		Err:       o.errText,
		ErrStatus: o.errStatus,
	}
}

// Start begins a new asynchronous session for polygon. A nil polygon means
// no area is selected and the call is a no-op returning false.
func (o *Orchestrator) Start(ctx context.Context, polygon geo.RequestPolygon) bool {
	gen, runCtx, ok := o.begin(ctx, polygon)
	if !ok {
		return false
	}
	go o.run(gen, runCtx, polygon)
	return true
}

// Run executes one session synchronously and returns the terminal
// snapshot. It follows the same supersession rules as Start.
func (o *Orchestrator) Run(ctx context.Context, polygon geo.RequestPolygon) (Snapshot, bool) {
	gen, runCtx, ok := o.begin(ctx, polygon)
	if !ok {
		return o.Snapshot(), false
	}
	o.run(gen, runCtx, polygon)
	return o.Snapshot(), true
}

// Stop cancels any in-flight session, e.g. on teardown.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// begin transitions into Requesting: it supersedes the previous session,
// clears stale output so it is never shown alongside the new request, and
// allocates the session's generation and cancelable context.
func (o *Orchestrator) begin(ctx context.Context, polygon geo.RequestPolygon) (uint64, context.Context, bool) {
	if len(polygon) == 0 {
		return 0, nil, false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.gen++
	o.sessionID = uuid.NewString()
	o.phase = PhaseRequesting
	o.summary = ""
	o.raw = ""
	o.errText = ""
	o.errStatus = 0

	o.logger.Info("analysis session started", "session", o.sessionID)
	return o.gen, runCtx, true
}

func (o *Orchestrator) run(gen uint64, ctx context.Context, polygon geo.RequestPolygon) {
	logger := o.logger.With("session", o.sessionIDFor(gen))

	body, err := o.client.Request(ctx, polygon)
	if err != nil {
		o.fail(gen, err)
		return
	}
	defer body.Close()

	o.transition(gen, PhaseStreaming)

	payload, err := sse.Decode(ctx, body, func(msg string) {
		logger.Info("analysis progress", "message", msg)
	})
	if err != nil {
		o.fail(gen, err)
		return
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, payload, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(payload)
	}
	summary := Summarize(ParseSummary(payload))

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return
	}
	o.phase = PhaseDone
	o.summary = summary
	o.raw = pretty.String()
	logger.Info("analysis session complete")
}

func (o *Orchestrator) transition(gen uint64, phase Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return
	}
	o.phase = phase
}

// fail records a terminal failure with the error text verbatim as the
// user-visible message, unless the session was superseded.
func (o *Orchestrator) fail(gen uint64, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return
	}
	o.phase = PhaseFailed
	o.errText = err.Error()
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		o.errStatus = reqErr.StatusCode
	}
	o.logger.Error("analysis session failed", "session", o.sessionID, "error", err)
}

func (o *Orchestrator) sessionIDFor(gen uint64) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen == o.gen {
		return o.sessionID
	}
	return ""
}
