package session

import (
	"context"
	"fmt"

	"localcoder/internal/tools"
	"localcoder/internal/types"
)

// --- MockLLMClient ---

// MockLLMClient replays scripted responses and records every request.
type MockLLMClient struct {
	Responses []string
	Errors    map[int]error // request index → error
	Requests  [][]types.Message

	// Repeat, when set, is returned once Responses are used up.
	Repeat string
}

func (m *MockLLMClient) Chat(ctx context.Context, messages []types.Message) (string, error) {
	i := len(m.Requests)
	m.Requests = append(m.Requests, messages)
	if err := m.Errors[i]; err != nil {
		return "", err
	}
	if i < len(m.Responses) {
		return m.Responses[i], nil
	}
	if m.Repeat != "" {
		return m.Repeat, nil
	}
	return "", fmt.Errorf("mock: no response scripted for request %d", i)
}

// --- MockDispatcher ---

type MockDispatcher struct {
	Calls  []types.FunctionCall
	Flags  []tools.FeatureFlags
	Result func(call types.FunctionCall) tools.Result
}

func (m *MockDispatcher) Dispatch(ctx context.Context, call types.FunctionCall, flags tools.FeatureFlags) tools.Result {
	m.Calls = append(m.Calls, call)
	m.Flags = append(m.Flags, flags)
	if m.Result != nil {
		return m.Result(call)
	}
	return tools.TextResult("ok: " + call.Name)
}

// --- RecordingObserver ---

type RecordingObserver struct {
	Events []string
}

func (r *RecordingObserver) OnFunctionCall(call types.FunctionCall, n int) {
	r.Events = append(r.Events, fmt.Sprintf("call %d %s", n, call.Name))
}

func (r *RecordingObserver) OnFunctionResult(call types.FunctionCall, res tools.Result) {
	r.Events = append(r.Events, "result "+call.Name)
}

func (r *RecordingObserver) OnNotice(msg string) { r.Events = append(r.Events, "notice "+msg) }
func (r *RecordingObserver) OnFinal(text string) { r.Events = append(r.Events, "final "+text) }
func (r *RecordingObserver) OnError(err error)   { r.Events = append(r.Events, "error "+err.Error()) }

func callJSON(name, args string) string {
	return fmt.Sprintf(`{"function_call": {"name": %q, "arguments": %s}}`, name, args)
}
