package search

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultDebounce is the pause after the last keystroke before a query
// fires.
const DefaultDebounce = 300 * time.Millisecond

// SessionConfig configures a Session. Zero values pick defaults.
type SessionConfig struct {
	// Debounce overrides DefaultDebounce.
	Debounce time.Duration

	// OnResults receives the replacement result set. It is also invoked
	// with nil to clear the list (short query, failed lookup). Callbacks
	// run on the session's timer goroutine and must not call back into
	// the Session.
	OnResults func(results []Result)

	// OnError observes lookup failures. Failures are non-fatal: the
	// result list is cleared and the session keeps accepting queries.
	OnError func(err error)

	Logger *slog.Logger
}

// Session owns the "latest query wins" invariant for type-ahead search:
// keystrokes are debounced, at most one lookup is scheduled at a time, and
// completions carrying a stale generation are discarded even when the
// network reorders them.
type Session struct {
	mu     sync.Mutex
	client *Client
	cfg    SessionConfig
	logger *slog.Logger

	timer  *time.Timer
	gen    uint64
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates a search session around client.
func NewSession(client *Client, cfg SessionConfig) *Session {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		client: client,
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// QueryChanged schedules a lookup for text after the debounce window.
// A new call supersedes any pending schedule and any in-flight lookup.
// Queries shorter than MinQueryLength never reach the network; the result
// list is cleared immediately.
func (s *Session) QueryChanged(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.stopTimerLocked()
	s.gen++

	if len([]rune(text)) < MinQueryLength {
		if s.cfg.OnResults != nil {
			s.cfg.OnResults(nil)
		}
		return
	}

	gen := s.gen
	s.timer = time.AfterFunc(s.cfg.Debounce, func() {
		s.fire(gen, text)
	})
}

// Cancel aborts any pending schedule without closing the session.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.gen++
}

// Close cancels the debounce timer and any in-flight lookup. The session
// accepts no further queries. Must be called on component teardown.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimerLocked()
	s.cancel()
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// fire runs the network lookup for one scheduled query and delivers its
// outcome unless a newer query has taken over in the meantime.
func (s *Session) fire(gen uint64, query string) {
	results, err := s.client.Search(s.ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		// Superseded while in flight; the newer query owns the dropdown.
		return
	}
	if err != nil {
		s.logger.Error("place search failed", "query", query, "error", err)
		if s.cfg.OnError != nil {
			s.cfg.OnError(err)
		}
		if s.cfg.OnResults != nil {
			s.cfg.OnResults(nil)
		}
		return
	}
	if s.cfg.OnResults != nil {
		s.cfg.OnResults(results)
	}
}
