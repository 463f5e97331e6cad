package tactile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"sync"
	"time"

	"localcoder/internal/logging"
)

// waitDelay bounds how long output is drained after the process is gone, so
// a descendant holding stdout open cannot stall a run.
const waitDelay = 2 * time.Second

// DirectExecutor executes commands directly on the host using os/exec.
type DirectExecutor struct {
	mu     sync.RWMutex
	config ExecutorConfig

	// auditCallback is called for execution events
	auditCallback func(AuditEvent)
}

// NewDirectExecutor creates a new direct executor with default config.
func NewDirectExecutor() *DirectExecutor {
	return NewDirectExecutorWithConfig(DefaultExecutorConfig())
}

// NewDirectExecutorWithConfig creates a new direct executor with custom config.
func NewDirectExecutorWithConfig(config ExecutorConfig) *DirectExecutor {
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = DefaultExecutorConfig().DefaultTimeout
	}
	if config.MaxOutputBytes <= 0 {
		config.MaxOutputBytes = DefaultExecutorConfig().MaxOutputBytes
	}
	logging.TactileDebug("Creating DirectExecutor: timeout=%s, maxOutput=%d bytes",
		config.DefaultTimeout, config.MaxOutputBytes)
	return &DirectExecutor{config: config}
}

// SetAuditCallback sets the callback for audit events.
func (e *DirectExecutor) SetAuditCallback(callback func(AuditEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.auditCallback = callback
}

func (e *DirectExecutor) emitAudit(event AuditEvent) {
	e.mu.RLock()
	callback := e.auditCallback
	e.mu.RUnlock()

	if callback != nil {
		event.Timestamp = time.Now()
		callback(event)
	}
}

// Execute runs a command directly on the host.
func (e *DirectExecutor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	timer := logging.StartTimer(logging.CategoryTactile, "Direct command execution")
	defer timer.Stop()

	if cmd.Binary == "" {
		return nil, fmt.Errorf("binary is required")
	}
	if cmd.WorkingDirectory == "" {
		cmd.WorkingDirectory = e.config.DefaultWorkingDir
	}
	timeout := e.config.DefaultTimeout
	if cmd.Timeout > 0 {
		timeout = cmd.Timeout
	}

	logging.Tactile("Executing command: %s (dir=%s, timeout=%s)", cmd.CommandString(), cmd.WorkingDirectory, timeout)

	if _, err := exec.LookPath(cmd.Binary); err != nil {
		return nil, e.startFailure(cmd, err)
	}

	result := &ExecutionResult{ExitCode: NoExitCode, Timeout: timeout}
	e.emitAudit(AuditEvent{Type: AuditEventStart, Command: cmd})

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	execCmd.Env = e.buildEnvironment(cmd.Environment)
	setupProcessGroup(execCmd)
	execCmd.Cancel = func() error { return killProcessGroup(execCmd) }
	execCmd.WaitDelay = waitDelay

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: e.config.MaxOutputBytes}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: e.config.MaxOutputBytes}

	// The child writes straight into pipes we own, so Wait returns as soon
	// as the leader exits instead of when the last holder of stdout does.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, e.startFailure(cmd, err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, e.startFailure(cmd, err)
	}
	execCmd.Stdout = stdoutW
	execCmd.Stderr = stderrW

	var copiers sync.WaitGroup
	copiers.Add(2)
	go drain(&copiers, stdoutLimited, stdoutR)
	go drain(&copiers, stderrLimited, stderrR)

	result.StartedAt = time.Now()
	err = execCmd.Start()
	stdoutW.Close()
	stderrW.Close()
	if err == nil {
		err = execCmd.Wait()
		reapProcessGroup(execCmd)
	}
	awaitDrain(&copiers, stdoutR, stderrR)
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()
	if stdoutLimited.truncated || stderrLimited.truncated {
		result.Truncated = true
		result.TruncatedBytes = stdoutLimited.discarded + stderrLimited.discarded
		logging.TactileWarn("Command output truncated: %d bytes discarded", result.TruncatedBytes)
	}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		logging.TactileDebug("Command canceled: %s", cmd.Binary)
		e.emitAudit(AuditEvent{Type: AuditEventKilled, Command: cmd, Result: result, Error: ctx.Err().Error()})
		return result, fmt.Errorf("execution canceled: %w", ctx.Err())

	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		result.TimedOut = true
		logging.TactileWarn("Command killed (timeout): %s after %s", cmd.Binary, timeout)
		e.emitAudit(AuditEvent{Type: AuditEventKilled, Command: cmd, Result: result, Error: "timeout"})
		return result, nil

	case err == nil, errors.Is(err, exec.ErrWaitDelay):
		result.ExitCode = execCmd.ProcessState.ExitCode()

	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		logging.TactileDebug("Command exited non-zero: %s -> %d", cmd.Binary, result.ExitCode)

	default:
		return nil, e.startFailure(cmd, err)
	}

	e.emitAudit(AuditEvent{Type: AuditEventComplete, Command: cmd, Result: result})
	logging.Tactile("Command completed: %s -> exit=%d, duration=%s, stdout=%d bytes, stderr=%d bytes",
		cmd.Binary, result.ExitCode, result.Duration, len(result.Stdout), len(result.Stderr))

	return result, nil
}

// startFailure classifies an error raised before the process ran.
func (e *DirectExecutor) startFailure(cmd Command, err error) error {
	e.emitAudit(AuditEvent{Type: AuditEventError, Command: cmd, Error: err.Error()})
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		logging.TactileWarn("Executable not found: %s", cmd.Binary)
		return fmt.Errorf("%w: %s", ErrExecutableNotFound, cmd.Binary)
	}
	logging.TactileError("Command failed to start: %s - %v", cmd.Binary, err)
	return fmt.Errorf("failed to start %s: %w", cmd.Binary, err)
}

func drain(wg *sync.WaitGroup, w io.Writer, r io.Reader) {
	defer wg.Done()
	_, _ = io.Copy(w, r)
}

// awaitDrain waits for the output copiers. A process that escaped the group
// kill may still hold a pipe open; after waitDelay the read ends are closed.
func awaitDrain(wg *sync.WaitGroup, readers ...*os.File) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	t := time.NewTimer(waitDelay)
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
		logging.TactileWarn("Output pipes still open %s after exit, closing", waitDelay)
		for _, r := range readers {
			r.Close()
		}
		<-done
	}
	for _, r := range readers {
		r.Close()
	}
}

// buildEnvironment creates the environment variable list.
func (e *DirectExecutor) buildEnvironment(cmdEnv []string) []string {
	env := make([]string, 0, len(e.config.AllowedEnvironment)+len(cmdEnv))
	for _, key := range e.config.AllowedEnvironment {
		if val, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+val)
		}
	}
	return append(env, cmdEnv...)
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		// report the full length so the copier does not fail with a short write
		return n, err
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
