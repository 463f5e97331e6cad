package tactile

import (
	"context"
)

// Executor is the interface for command execution.
//
// A non-zero exit or a timeout is reported in the result, not as an error.
// The error return is reserved for runs that never started, such as
// ErrExecutableNotFound.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (*ExecutionResult, error)
}

// AuditedExecutor is an executor that reports audit events.
type AuditedExecutor interface {
	Executor

	// SetAuditCallback sets the callback for audit events.
	SetAuditCallback(callback func(AuditEvent))
}
