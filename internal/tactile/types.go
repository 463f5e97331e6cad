// Package tactile runs external programs on behalf of the assistant.
//
// Commands are always executed from an argument vector; no shell ever sees
// the arguments. Every run is bounded by a wall-clock timeout after which the
// process group is killed.
package tactile

import (
	"errors"
	"strings"
	"time"
)

// ErrExecutableNotFound is returned when the binary cannot be located.
var ErrExecutableNotFound = errors.New("executable not found")

// NoExitCode marks a result without an exit status (timeout, kill).
const NoExitCode = -1

// Command describes one program invocation.
type Command struct {
	// Binary is the executable name or path.
	Binary string `json:"binary"`

	// Arguments are passed literally, never joined into a command line.
	Arguments []string `json:"arguments,omitempty"`

	// WorkingDirectory is the cwd; empty means the executor default.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Timeout overrides the executor default when positive.
	Timeout time.Duration `json:"timeout,omitempty"`

	// Environment entries (KEY=VALUE) added after the allow-listed ones.
	Environment []string `json:"environment,omitempty"`

	// RequestID correlates audit events and logs.
	RequestID string `json:"request_id,omitempty"`
}

// Argv returns the full argument vector including the binary.
func (c Command) Argv() []string {
	return append([]string{c.Binary}, c.Arguments...)
}

// CommandString renders the command for logs. It is not meant to be parsed.
func (c Command) CommandString() string {
	return strings.Join(c.Argv(), " ")
}

// ExecutionResult is what a finished (or killed) process left behind.
// It belongs to the caller that requested the run.
type ExecutionResult struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`

	// ExitCode is NoExitCode when the process did not exit on its own.
	ExitCode int `json:"exit_code"`

	// TimedOut is set when the timeout expired and the process was killed.
	TimedOut bool          `json:"timed_out"`
	Timeout  time.Duration `json:"timeout"`

	// Truncated is set when output exceeded the capture limit.
	Truncated      bool  `json:"truncated,omitempty"`
	TruncatedBytes int64 `json:"truncated_bytes,omitempty"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

// Succeeded reports a clean zero exit.
func (r *ExecutionResult) Succeeded() bool {
	return r != nil && !r.TimedOut && r.ExitCode == 0
}

// ExecutorConfig configures a DirectExecutor.
type ExecutorConfig struct {
	// DefaultWorkingDir is used when a command has none; empty means the process cwd.
	DefaultWorkingDir string

	// DefaultTimeout applies when a command sets none.
	DefaultTimeout time.Duration

	// MaxOutputBytes caps each of stdout and stderr.
	MaxOutputBytes int64

	// AllowedEnvironment lists variables inherited from the parent process.
	AllowedEnvironment []string
}

// DefaultExecutorConfig returns sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		DefaultTimeout: 10 * time.Second,
		MaxOutputBytes: 1024 * 1024,
		AllowedEnvironment: []string{
			"PATH", "HOME", "USER", "LANG", "TERM", "TMPDIR",
			"SYSTEMROOT", "PATHEXT", "COMSPEC",
		},
	}
}

// AuditEventType categorizes execution events.
type AuditEventType string

const (
	AuditEventStart    AuditEventType = "start"
	AuditEventComplete AuditEventType = "complete"
	AuditEventKilled   AuditEventType = "killed"
	AuditEventError    AuditEventType = "error"
)

// AuditEvent is emitted for every stage of an execution.
type AuditEvent struct {
	Type      AuditEventType   `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Command   Command          `json:"command"`
	Result    *ExecutionResult `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
}
