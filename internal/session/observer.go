package session

import (
	"localcoder/internal/tools"
	"localcoder/internal/types"
)

// Observer receives what a turn wants shown to the user.
type Observer interface {
	// OnFunctionCall is called before a call is dispatched. n counts calls this turn.
	OnFunctionCall(call types.FunctionCall, n int)
	OnFunctionResult(call types.FunctionCall, res tools.Result)
	OnNotice(msg string)
	OnFinal(text string)
	OnError(err error)
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) OnFunctionCall(types.FunctionCall, int)            {}
func (NopObserver) OnFunctionResult(types.FunctionCall, tools.Result) {}
func (NopObserver) OnNotice(string)                                   {}
func (NopObserver) OnFinal(string)                                    {}
func (NopObserver) OnError(error)                                     {}
