// Package tools is the function dispatcher: it maps the closed set of call
// names a model may emit to handlers and normalizes every outcome into a
// model-facing and a user-facing rendering.
//
// Architecture:
//
//	FunctionCall → Dispatcher.Dispatch → kill switch → Registry.Get → Tool.Execute → Result
package tools

import (
	"context"

	"localcoder/internal/types"
)

// CallName identifies a callable function. The set is closed; the registry
// refuses any name not listed in KnownCalls.
type CallName string

const (
	CallListFiles    CallName = "get_files_info"
	CallReadFile     CallName = "get_file_content"
	CallSearchFile   CallName = "search_file_content"
	CallWriteFile    CallName = "write_file"
	CallAppendFile   CallName = "append_file"
	CallReplaceLines CallName = "replace_lines"
	CallShellCommand CallName = "shell_command"
	CallRunScript    CallName = "run_python_file"
)

// KnownCalls lists every call name in presentation order.
var KnownCalls = []CallName{
	CallListFiles,
	CallReadFile,
	CallSearchFile,
	CallWriteFile,
	CallAppendFile,
	CallReplaceLines,
	CallShellCommand,
	CallRunScript,
}

// Known reports whether n is in the closed call set.
func (n CallName) Known() bool {
	for _, k := range KnownCalls {
		if k == n {
			return true
		}
	}
	return false
}

// ToolCategory groups tools for prompt rendering.
type ToolCategory string

const (
	CategoryFiles     ToolCategory = "files"
	CategoryExecution ToolCategory = "execution"
)

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	// Items describes array element schema (required for type="array")
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// ToolSchema defines the JSON schema for tool arguments.
type ToolSchema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`

	// Order fixes the parameter order used when rendering the schema.
	Order []string `json:"-"`
}

// FeatureFlags are runtime switches consulted on every dispatch.
type FeatureFlags struct {
	// ShellCommandsEnabled is the kill switch for shell_command.
	ShellCommandsEnabled bool
}

// Result is the normalized outcome of one function call.
type Result struct {
	// ModelText is fed back to the model; the dispatcher bounds its length.
	ModelText string

	// UserText is shown to the user and may carry full content.
	UserText string

	// Payload optionally carries structured data for rendering.
	Payload any

	// IsError marks rejections and error-shaped outcomes.
	IsError bool
}

// TextResult renders the same text for both audiences.
func TextResult(text string) Result {
	return Result{ModelText: text, UserText: text}
}

// ErrorResult renders an error-shaped outcome for both audiences.
func ErrorResult(text string) Result {
	return Result{ModelText: text, UserText: text, IsError: true}
}

// ExecuteFunc is the signature for tool execution.
// A returned error is converted into an error Result by the dispatcher.
type ExecuteFunc func(ctx context.Context, args types.Arguments) (Result, error)

// Tool binds a call name to its handler.
type Tool struct {
	// Name is the call name the model uses.
	Name CallName

	// Description explains what the tool does; it is rendered into the system prompt.
	Description string

	// Category classifies the tool.
	Category ToolCategory

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema ToolSchema
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if !t.Name.Known() {
		return ErrUnknownCall
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}
