// Package session implements the turn loop.
//
// A turn sends the whole conversation to the model, looks for a function
// call in the reply, executes it through the dispatcher and feeds the result
// back, until the model answers in plain text or the call budget runs out.
//
// Architecture:
//
//	User Input → LLM → Parser → Dispatcher → "Function result: ..." → LLM → ... → Answer
package session

import (
	"context"
	"fmt"
	"time"

	"localcoder/internal/logging"
	"localcoder/internal/perception"
	"localcoder/internal/tools"
	"localcoder/internal/types"
)

// FunctionResultPrefix starts the synthetic user message carrying a result.
const FunctionResultPrefix = "Function result: "

// Dispatcher executes one function call. *tools.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, call types.FunctionCall, flags tools.FeatureFlags) tools.Result
}

// Outcome is how a turn ended.
type Outcome int

const (
	OutcomeFinal Outcome = iota
	OutcomeBudgetExhausted
	OutcomeTransportError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFinal:
		return "final"
	case OutcomeBudgetExhausted:
		return "budget_exhausted"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// TurnResult summarizes one turn.
type TurnResult struct {
	Outcome Outcome

	// Response is the final answer for OutcomeFinal.
	Response string

	// Notice is set for OutcomeBudgetExhausted.
	Notice string

	CallsExecuted int
	Duration      time.Duration
}

// LoopConfig configures a Loop.
type LoopConfig struct {
	// MaxCalls is the per-turn function call ceiling.
	MaxCalls int

	Flags    tools.FeatureFlags
	Observer Observer
	Trimmer  Trimmer
}

// LoopStats are running totals across turns.
type LoopStats struct {
	Turns         int
	FunctionCalls int
	Messages      int
}

// Loop drives turns against one conversation. It is not safe for
// concurrent use; one goroutine owns it.
type Loop struct {
	client     types.LLMClient
	dispatcher Dispatcher
	conv       *types.Conversation
	budget     *CallBudget
	flags      tools.FeatureFlags
	observer   Observer
	trimmer    Trimmer

	turns int
	calls int
}

// NewLoop creates a loop over conv.
func NewLoop(client types.LLMClient, dispatcher Dispatcher, conv *types.Conversation, cfg LoopConfig) *Loop {
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	logging.Session("Creating turn loop: max_calls=%d shell=%v", cfg.MaxCalls, cfg.Flags.ShellCommandsEnabled)
	return &Loop{
		client:     client,
		dispatcher: dispatcher,
		conv:       conv,
		budget:     NewCallBudget(cfg.MaxCalls),
		flags:      cfg.Flags,
		observer:   cfg.Observer,
		trimmer:    cfg.Trimmer,
	}
}

// Conversation returns the conversation the loop appends to.
func (l *Loop) Conversation() *types.Conversation { return l.conv }

// Flags returns the current feature flags.
func (l *Loop) Flags() tools.FeatureFlags { return l.flags }

// SetFlags changes the feature flags for subsequent calls.
func (l *Loop) SetFlags(f tools.FeatureFlags) { l.flags = f }

// SetObserver replaces the observer; nil restores the no-op one.
func (l *Loop) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	l.observer = o
}

// MaxCalls returns the per-turn ceiling.
func (l *Loop) MaxCalls() int { return l.budget.Ceiling() }

// Stats returns running totals.
func (l *Loop) Stats() LoopStats {
	return LoopStats{Turns: l.turns, FunctionCalls: l.calls, Messages: l.conv.Len()}
}

// RunTurn processes one user input to completion.
//
// A transport failure ends the turn with OutcomeTransportError and a
// non-nil error; the conversation then holds the user message and any
// earlier exchanges of this turn, nothing more.
func (l *Loop) RunTurn(ctx context.Context, input string) (*TurnResult, error) {
	start := time.Now()
	l.turns++
	l.conv.Append(types.UserMessage(input))
	l.budget.Reset()
	logging.Session("Turn %d: input %d chars", l.turns, len(input))

	result := &TurnResult{}
	defer func() {
		result.Duration = time.Since(start)
		if l.trimmer != nil {
			l.trimmer.Trim(l.conv)
		}
		logging.Session("Turn %d complete: outcome=%s calls=%d duration=%v",
			l.turns, result.Outcome, result.CallsExecuted, result.Duration)
	}()

	for {
		response, err := l.client.Chat(ctx, l.conv.Messages())
		if err != nil {
			logging.Get(logging.CategorySession).Error("Model request failed: %v", err)
			l.observer.OnError(err)
			result.Outcome = OutcomeTransportError
			return result, fmt.Errorf("model request failed: %w", err)
		}

		call, ok := perception.ParseFunctionCall(response)
		if !ok {
			l.conv.Append(types.AssistantMessage(response))
			l.observer.OnFinal(response)
			result.Outcome = OutcomeFinal
			result.Response = response
			return result, nil
		}

		if l.budget.Consume() {
			notice := fmt.Sprintf("Reached maximum function calls (%d). Stopping to prevent loops.", l.budget.Ceiling())
			logging.Get(logging.CategorySession).Warn("Call budget exhausted; %s not executed", call.Name)
			l.observer.OnNotice(notice)
			result.Outcome = OutcomeBudgetExhausted
			result.Notice = notice
			return result, nil
		}

		l.observer.OnFunctionCall(call, l.budget.Used())
		res := l.dispatcher.Dispatch(ctx, call, l.flags)
		l.observer.OnFunctionResult(call, res)
		result.CallsExecuted++
		l.calls++

		l.conv.Append(
			types.AssistantMessage(response),
			types.UserMessage(FunctionResultPrefix+res.ModelText),
		)
		logging.SessionDebug("Call %d/%d: %s (error=%v, %d chars fed back)",
			l.budget.Used(), l.budget.Ceiling(), call.Name, res.IsError, len(res.ModelText))
	}
}
