package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localcoder/internal/perception"
	"localcoder/internal/tactile"
	"localcoder/internal/tools"
	"localcoder/internal/tools/core"
	"localcoder/internal/tools/shell"
	"localcoder/internal/types"
)

func newTestLoop(client types.LLMClient, d Dispatcher, cfg LoopConfig) *Loop {
	return NewLoop(client, d, types.NewConversation("system prompt"), cfg)
}

type countingExecutor struct{ n atomic.Int32 }

func (c *countingExecutor) Execute(ctx context.Context, cmd tactile.Command) (*tactile.ExecutionResult, error) {
	c.n.Add(1)
	return &tactile.ExecutionResult{}, nil
}

func realDispatcher(t *testing.T, exec tactile.Executor) *tools.Dispatcher {
	t.Helper()
	reg := tools.NewRegistry()
	dir := t.TempDir()
	require.NoError(t, core.RegisterAll(reg, core.DefaultLimits(), dir))
	require.NoError(t, shell.RegisterAll(reg, shell.Config{Executor: exec, WorkDir: dir}))
	d, err := tools.NewDispatcher(reg, 0)
	require.NoError(t, err)
	return d
}

// =============================================================================
// TERMINATION
// =============================================================================

func TestRunTurn_FinalAnswer(t *testing.T) {
	client := &MockLLMClient{Responses: []string{"The answer is 42."}}
	obs := &RecordingObserver{}
	loop := newTestLoop(client, &MockDispatcher{}, LoopConfig{Observer: obs})

	res, err := loop.RunTurn(context.Background(), "what is the answer?")
	require.NoError(t, err)

	assert.Equal(t, OutcomeFinal, res.Outcome)
	assert.Equal(t, "The answer is 42.", res.Response)
	assert.Zero(t, res.CallsExecuted)
	assert.Equal(t, []types.Message{
		types.SystemMessage("system prompt"),
		types.UserMessage("what is the answer?"),
		types.AssistantMessage("The answer is 42."),
	}, loop.Conversation().Messages())
	assert.Equal(t, []string{"final The answer is 42."}, obs.Events)
}

func TestRunTurn_CallCeiling(t *testing.T) {
	client := &MockLLMClient{Repeat: callJSON("get_files_info", `{"directory": "."}`)}
	disp := &MockDispatcher{}
	obs := &RecordingObserver{}
	loop := newTestLoop(client, disp, LoopConfig{MaxCalls: 5, Observer: obs})

	res, err := loop.RunTurn(context.Background(), "loop forever")
	require.NoError(t, err)

	assert.Equal(t, OutcomeBudgetExhausted, res.Outcome)
	assert.Equal(t, "Reached maximum function calls (5). Stopping to prevent loops.", res.Notice)
	assert.Equal(t, 5, res.CallsExecuted)
	assert.Len(t, disp.Calls, 5, "no 6th execution")
	assert.Len(t, client.Requests, 6)

	// system + user + 5 × (assistant call + function result)
	conv := loop.Conversation()
	assert.Equal(t, 12, conv.Len())
	assert.Equal(t, types.UserMessage("Function result: ok: get_files_info"), conv.Last())
	assert.Equal(t, "notice "+res.Notice, obs.Events[len(obs.Events)-1])
}

func TestRunTurn_BudgetResetsEachTurn(t *testing.T) {
	call := callJSON("get_files_info", `{}`)
	client := &MockLLMClient{Responses: []string{call, call, call, "done", call, call, call, "done again"}}
	disp := &MockDispatcher{}
	loop := newTestLoop(client, disp, LoopConfig{MaxCalls: 3})

	res, err := loop.RunTurn(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinal, res.Outcome)

	res, err = loop.RunTurn(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinal, res.Outcome)
	assert.Equal(t, "done again", res.Response)

	stats := loop.Stats()
	assert.Equal(t, 2, stats.Turns)
	assert.Equal(t, 6, stats.FunctionCalls)
}

// =============================================================================
// TRANSPORT ERRORS
// =============================================================================

func TestRunTurn_TransportErrorFirstRequest(t *testing.T) {
	client := &MockLLMClient{Errors: map[int]error{0: errors.New("connection refused")}}
	obs := &RecordingObserver{}
	loop := newTestLoop(client, &MockDispatcher{}, LoopConfig{Observer: obs})

	res, err := loop.RunTurn(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, OutcomeTransportError, res.Outcome)

	// Only the user's own message was added.
	assert.Equal(t, 2, loop.Conversation().Len())
	assert.Equal(t, types.UserMessage("hello"), loop.Conversation().Last())
	assert.Equal(t, []string{"error connection refused"}, obs.Events)
}

func TestRunTurn_TransportErrorMidTurn(t *testing.T) {
	apiErr := &perception.APIError{StatusCode: 500, Body: "boom"}
	client := &MockLLMClient{
		Responses: []string{callJSON("get_files_info", `{}`)},
		Errors:    map[int]error{1: apiErr},
	}
	disp := &MockDispatcher{}
	loop := newTestLoop(client, disp, LoopConfig{})

	res, err := loop.RunTurn(context.Background(), "hello")
	var got *perception.APIError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 500, got.StatusCode)
	assert.Equal(t, OutcomeTransportError, res.Outcome)
	assert.Equal(t, 1, res.CallsExecuted)

	// system, user, assistant call, function result; nothing after the failure.
	assert.Equal(t, 4, loop.Conversation().Len())
}

// =============================================================================
// END-TO-END WITH THE REAL DISPATCHER
// =============================================================================

func TestRunTurn_ListFilesScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0644))

	client := &MockLLMClient{Responses: []string{
		callJSON("get_files_info", `{"directory": "`+filepath.ToSlash(dir)+`"}`),
		"There is one file, a.txt.",
	}}
	loop := newTestLoop(client, realDispatcher(t, &countingExecutor{}), LoopConfig{})

	res, err := loop.RunTurn(context.Background(), "list files in .")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinal, res.Outcome)
	assert.Equal(t, 1, res.CallsExecuted)

	require.Len(t, client.Requests, 2, "the model is asked again after the result")
	second := client.Requests[1]
	fed := second[len(second)-1]
	assert.Equal(t, types.RoleUser, fed.Role)
	assert.True(t, strings.HasPrefix(fed.Content, "Function result: Files in '"), fed.Content)
	assert.Contains(t, fed.Content, "a.txt (file, 5 bytes)")
	assert.Equal(t, types.RoleAssistant, second[len(second)-2].Role)
}

func TestRunTurn_KillSwitchScenario(t *testing.T) {
	exec := &countingExecutor{}
	client := &MockLLMClient{Responses: []string{
		callJSON("shell_command", `{"command": "mkdir", "args": ["test"]}`),
		"Shell commands are off.",
	}}
	loop := newTestLoop(client, realDispatcher(t, exec), LoopConfig{
		Flags: tools.FeatureFlags{ShellCommandsEnabled: false},
	})

	_, err := loop.RunTurn(context.Background(), "make a dir")
	require.NoError(t, err)

	msgs := loop.Conversation().Messages()
	assert.Equal(t, FunctionResultPrefix+tools.ShellDisabledMessage, msgs[3].Content)
	assert.Zero(t, exec.n.Load(), "executor must not run while the kill switch is off")
}

func TestRunTurn_FlagsReachDispatcher(t *testing.T) {
	client := &MockLLMClient{Responses: []string{callJSON("shell_command", `{"command": "pwd"}`), "ok"}}
	disp := &MockDispatcher{}
	loop := newTestLoop(client, disp, LoopConfig{})
	loop.SetFlags(tools.FeatureFlags{ShellCommandsEnabled: true})

	_, err := loop.RunTurn(context.Background(), "where am i")
	require.NoError(t, err)
	require.Len(t, disp.Flags, 1)
	assert.True(t, disp.Flags[0].ShellCommandsEnabled)
}

func TestRunTurn_ErrorResultsAreFedBack(t *testing.T) {
	client := &MockLLMClient{Responses: []string{callJSON("delete_everything", `{}`), "sorry"}}
	disp := &MockDispatcher{Result: func(call types.FunctionCall) tools.Result {
		return tools.ErrorResult("❌ Error: Unknown function '" + call.Name + "'")
	}}
	obs := &RecordingObserver{}
	loop := newTestLoop(client, disp, LoopConfig{Observer: obs})

	res, err := loop.RunTurn(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinal, res.Outcome)
	assert.Equal(t, "Function result: ❌ Error: Unknown function 'delete_everything'",
		loop.Conversation().Messages()[3].Content)
	assert.Equal(t, []string{"call 1 delete_everything", "result delete_everything", "final sorry"}, obs.Events)
}

// =============================================================================
// TRIMMING AND BUDGET
// =============================================================================

func TestRunTurn_TrimsAfterTurn(t *testing.T) {
	client := &MockLLMClient{Responses: []string{callJSON("get_files_info", `{}`), "done"}}
	loop := newTestLoop(client, &MockDispatcher{}, LoopConfig{Trimmer: KeepRecent{MaxLength: 4, Keep: 2}})

	_, err := loop.RunTurn(context.Background(), "x")
	require.NoError(t, err)

	msgs := loop.Conversation().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, types.RoleSystem, msgs[0].Role)
	assert.Equal(t, "done", msgs[2].Content)
}

func TestKeepRecent_BelowLimitIsNoop(t *testing.T) {
	conv := types.NewConversation("s")
	conv.Append(types.UserMessage("a"), types.AssistantMessage("b"))
	assert.Zero(t, KeepRecent{MaxLength: 10, Keep: 1}.Trim(conv))
	assert.Zero(t, KeepRecent{}.Trim(conv))
	assert.Equal(t, 3, conv.Len())
}

func TestCallBudget(t *testing.T) {
	b := NewCallBudget(2)
	assert.False(t, b.Consume())
	assert.False(t, b.Consume())
	assert.True(t, b.Consume())
	assert.Equal(t, 3, b.Used())
	b.Reset()
	assert.Zero(t, b.Used())

	assert.Equal(t, DefaultMaxFunctionCalls, NewCallBudget(0).Ceiling())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "final", OutcomeFinal.String())
	assert.Equal(t, "budget_exhausted", OutcomeBudgetExhausted.String())
	assert.Equal(t, "transport_error", OutcomeTransportError.String())
}
