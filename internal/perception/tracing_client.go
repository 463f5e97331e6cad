package perception

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"localcoder/internal/logging"
	"localcoder/internal/types"
)

// ChatTrace captures one model round trip.
type ChatTrace struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Model     string        `json:"model,omitempty"`
	Messages  int           `json:"messages"`
	Response  string        `json:"response"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// TraceSink receives a trace for every chat call.
type TraceSink interface {
	Record(trace ChatTrace)
}

type modelNamer interface {
	Model() string
}

// TracingClient wraps any LLMClient and reports every Chat call to a sink.
type TracingClient struct {
	underlying types.LLMClient
	sink       TraceSink
	sessionID  string
}

// NewTracingClient creates a tracing wrapper around an existing client.
func NewTracingClient(underlying types.LLMClient, sink TraceSink, sessionID string) *TracingClient {
	return &TracingClient{underlying: underlying, sink: sink, sessionID: sessionID}
}

// Chat forwards to the wrapped client and records the outcome.
func (tc *TracingClient) Chat(ctx context.Context, messages []types.Message) (string, error) {
	start := time.Now()
	resp, err := tc.underlying.Chat(ctx, messages)

	trace := ChatTrace{
		ID:        uuid.NewString(),
		SessionID: tc.sessionID,
		Messages:  len(messages),
		Response:  resp,
		Duration:  time.Since(start),
		Success:   err == nil,
		Timestamp: start,
	}
	if m, ok := tc.underlying.(modelNamer); ok {
		trace.Model = m.Model()
	}
	if err != nil {
		trace.Error = err.Error()
	}
	if tc.sink != nil {
		tc.sink.Record(trace)
	}
	logging.PerceptionDebug("trace %s: model=%s messages=%d success=%v duration=%v",
		trace.ID, trace.Model, trace.Messages, trace.Success, trace.Duration)
	return resp, err
}

// Underlying returns the wrapped client.
func (tc *TracingClient) Underlying() types.LLMClient {
	return tc.underlying
}

// ChatStats is a TraceSink that keeps running totals for status display.
type ChatStats struct {
	mu        sync.Mutex
	requests  int
	failures  int
	total     time.Duration
	lastError string
}

// Record implements TraceSink.
func (s *ChatStats) Record(t ChatTrace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	s.total += t.Duration
	if !t.Success {
		s.failures++
		s.lastError = t.Error
	}
}

// StatsSnapshot is a point-in-time copy of ChatStats.
type StatsSnapshot struct {
	Requests    int
	Failures    int
	AvgDuration time.Duration
	LastError   string
}

// Snapshot returns the current totals.
func (s *ChatStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatsSnapshot{Requests: s.requests, Failures: s.failures, LastError: s.lastError}
	if s.requests > 0 {
		snap.AvgDuration = s.total / time.Duration(s.requests)
	}
	return snap
}
