package tools

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"localcoder/internal/logging"
	"localcoder/internal/types"
)

// ShellDisabledMessage is returned for shell_command while the kill switch is off.
const ShellDisabledMessage = "❌ Error: Shell commands are disabled. Use /shellcmds on to enable."

// DefaultResultMaxChars bounds model-facing text when no limit is configured.
const DefaultResultMaxChars = 8000

// Dispatcher routes function calls to registered tools.
// Dispatch never fails: every problem becomes an error Result.
type Dispatcher struct {
	registry       *Registry
	resultMaxChars int
}

// NewDispatcher checks that every known call has a handler.
func NewDispatcher(registry *Registry, resultMaxChars int) (*Dispatcher, error) {
	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("incomplete tool registry: %w", err)
	}
	if resultMaxChars <= 0 {
		resultMaxChars = DefaultResultMaxChars
	}
	return &Dispatcher{registry: registry, resultMaxChars: resultMaxChars}, nil
}

// Registry exposes the underlying registry, e.g. for prompt rendering.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch executes one call and returns its normalized result.
func (d *Dispatcher) Dispatch(ctx context.Context, call types.FunctionCall, flags FeatureFlags) (res Result) {
	name := CallName(call.Name)
	start := time.Now()

	if name == CallShellCommand && !flags.ShellCommandsEnabled {
		logging.ToolsWarn("shell_command rejected: kill switch is off")
		return ErrorResult(ShellDisabledMessage)
	}

	tool := d.registry.Get(name)
	if tool == nil {
		logging.ToolsWarn("Unknown function requested: %q", call.Name)
		return ErrorResult(fmt.Sprintf("❌ Error: Unknown function '%s'", call.Name))
	}

	defer func() {
		if r := recover(); r != nil {
			logging.ToolsError("Handler %s panicked: %v\n%s", name, r, debug.Stack())
			res = ErrorResult(fmt.Sprintf("❌ Error executing %s: %v", name, r))
		}
		res.ModelText = Truncate(res.ModelText, d.resultMaxChars)
		logging.ToolsDebug("Tool %s completed in %v (error=%v, model_text=%d chars)",
			name, time.Since(start), res.IsError, len(res.ModelText))
	}()

	args := call.Arguments
	if args == nil {
		args = types.Arguments{}
	}
	if err := validateArgs(tool, args); err != nil {
		return ErrorResult(fmt.Sprintf("❌ Error executing %s: %v", name, err))
	}

	logging.Tools("Executing tool: %s", name)
	result, err := tool.Execute(ctx, args)
	if err != nil {
		logging.ToolsWarn("Tool %s failed: %v", name, err)
		return ErrorResult(fmt.Sprintf("❌ Error executing %s: %v", name, err))
	}
	if result.UserText == "" {
		result.UserText = result.ModelText
	}
	return result
}
