package tools

import "errors"

// Tool registry errors.
var (
	// ErrUnknownCall is returned for names outside the closed call set.
	ErrUnknownCall = errors.New("unknown function")

	// ErrToolNameEmpty is returned when a tool has no name.
	ErrToolNameEmpty = errors.New("tool name cannot be empty")

	// ErrToolExecuteNil is returned when a tool has no execute function.
	ErrToolExecuteNil = errors.New("tool execute function cannot be nil")

	// ErrDuplicateHandler is returned when a call name is registered twice.
	ErrDuplicateHandler = errors.New("handler already registered")

	// ErrMissingHandler is returned by Registry.Validate for an unbound call name.
	ErrMissingHandler = errors.New("no handler registered")
)
