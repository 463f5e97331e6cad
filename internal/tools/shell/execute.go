package shell

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"localcoder/internal/logging"
	"localcoder/internal/tactile"
	"localcoder/internal/tools"
	"localcoder/internal/types"
)

// Config wires the execution tools to their collaborators.
type Config struct {
	Validator *Validator
	Executor  tactile.Executor

	CommandTimeout time.Duration
	ScriptTimeout  time.Duration

	// Interpreter runs run_python_file scripts, e.g. "python3".
	Interpreter string

	// WorkDir is where commands run; empty means the process cwd.
	WorkDir string
}

func (c Config) withDefaults() Config {
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 10 * time.Second
	}
	if c.ScriptTimeout <= 0 {
		c.ScriptTimeout = 30 * time.Second
	}
	if c.Interpreter == "" {
		c.Interpreter = "python3"
	}
	if c.Executor == nil {
		c.Executor = tactile.NewDirectExecutor()
	}
	if c.Validator == nil {
		var opts []Option
		if c.WorkDir != "" {
			dir := c.WorkDir
			opts = append(opts, WithWorkDir(func() (string, error) { return filepath.Abs(dir) }))
		}
		c.Validator = NewValidator(DefaultWhitelist(), opts...)
	}
	return c
}

// Handlers implements shell_command and run_python_file.
type Handlers struct {
	cfg Config
}

// NewHandlers fills unset fields of cfg with defaults.
func NewHandlers(cfg Config) *Handlers {
	return &Handlers{cfg: cfg.withDefaults()}
}

// =============================================================================
// shell_command
// =============================================================================

// ShellCommandTool returns the whitelisted command tool.
func (h *Handlers) ShellCommandTool() *tools.Tool {
	return &tools.Tool{
		Name:        tools.CallShellCommand,
		Description: "Run one whitelisted command with literal arguments (no shell, no pipes, no redirection)",
		Category:    tools.CategoryExecution,
		Execute:     h.executeShellCommand,
		Schema: tools.ToolSchema{
			Required: []string{"command"},
			Properties: map[string]tools.Property{
				"command": {Type: "string", Description: "Whitelisted command name"},
				"args": {
					Type:        "array",
					Description: "Arguments passed to the command",
					Items:       &tools.PropertyItems{Type: "string"},
				},
			},
			Order: []string{"command", "args"},
		},
	}
}

func (h *Handlers) executeShellCommand(ctx context.Context, args types.Arguments) (tools.Result, error) {
	command, err := args.String("command")
	if err != nil {
		return tools.Result{}, err
	}
	cmdArgs, err := args.StringList("args")
	if err != nil {
		return tools.Result{}, err
	}

	logging.ShellDebug("shell_command requested: %s %q", command, cmdArgs)

	plan, err := h.cfg.Validator.Validate(command, cmdArgs)
	if err != nil {
		var rej *Rejection
		if !errors.As(err, &rej) {
			return tools.Result{}, err
		}
		logging.ShellWarn("shell_command rejected: %s", rej.Error())
		return tools.ErrorResult(renderRejection(rej)), nil
	}

	res, err := h.cfg.Executor.Execute(ctx, tactile.Command{
		Binary:           plan.Argv[0],
		Arguments:        plan.Argv[1:],
		WorkingDirectory: h.cfg.WorkDir,
		Timeout:          h.cfg.CommandTimeout,
		RequestID:        uuid.NewString(),
	})
	if err != nil {
		if errors.Is(err, tactile.ErrExecutableNotFound) {
			return tools.ErrorResult(fmt.Sprintf("❌ Error: Command '%s' not found on system", command)), nil
		}
		return tools.ErrorResult(fmt.Sprintf("❌ Error executing command '%s': %v", command, err)), nil
	}
	if res.TimedOut {
		logging.ShellWarn("shell_command timed out: %s", strings.Join(plan.Argv, " "))
		text := fmt.Sprintf("⏰ Error: Command '%s' timed out after %s", command, h.cfg.CommandTimeout)
		return tools.Result{ModelText: text, UserText: text, Payload: res, IsError: true}, nil
	}

	stdout := strings.TrimSpace(res.Stdout)
	stderr := strings.TrimSpace(res.Stderr)

	var sb strings.Builder
	if stdout != "" {
		fmt.Fprintf(&sb, "📤 Output:\n%s\n", stdout)
	}
	if stderr != "" {
		fmt.Fprintf(&sb, "🚨 Error:\n%s\n", stderr)
	}
	if res.Truncated {
		fmt.Fprintf(&sb, "[output truncated: %d bytes discarded]\n", res.TruncatedBytes)
	}
	fmt.Fprintf(&sb, "🔢 Exit code: %d", res.ExitCode)

	user := fmt.Sprintf("⚠️  Command completed with exit code %d", res.ExitCode)
	if res.ExitCode == 0 {
		user = "✅ Command executed successfully: " + command
		if stdout != "" {
			user += "\n" + stdout
		}
	}

	logging.Shell("shell_command %s exited %d in %v", command, res.ExitCode, res.Duration)
	return tools.Result{
		ModelText: sb.String(),
		UserText:  user,
		Payload:   res,
		IsError:   res.ExitCode != 0,
	}, nil
}

func renderRejection(rej *Rejection) string {
	msg := "❌ Error: " + rej.Error()
	switch rej.Reason {
	case ReasonNotWhitelisted:
		msg += "\n💡 Available commands: " + strings.Join(rej.Available, ", ")
	case ReasonAbsolutePath:
		msg += "\n💡 Use relative paths like 'dirname' or 'subdir/filename'"
	}
	return msg
}

// =============================================================================
// run_python_file
// =============================================================================

// RunScriptTool returns the script execution tool.
func (h *Handlers) RunScriptTool() *tools.Tool {
	return &tools.Tool{
		Name:        tools.CallRunScript,
		Description: "Run a Python script and return its output",
		Category:    tools.CategoryExecution,
		Execute:     h.executeRunScript,
		Schema: tools.ToolSchema{
			Required: []string{"file_path"},
			Properties: map[string]tools.Property{
				"file_path": {Type: "string", Description: "The script to run"},
				"args": {
					Type:        "array",
					Description: "Command-line arguments for the script",
					Items:       &tools.PropertyItems{Type: "string"},
				},
			},
			Order: []string{"file_path", "args"},
		},
	}
}

func (h *Handlers) executeRunScript(ctx context.Context, args types.Arguments) (tools.Result, error) {
	path, err := args.String("file_path")
	if err != nil {
		return tools.Result{}, err
	}
	scriptArgs, err := args.StringList("args")
	if err != nil {
		return tools.Result{}, err
	}

	logging.ShellDebug("run_python_file: path=%s args=%q", path, scriptArgs)

	local := path
	if !filepath.IsAbs(local) && h.cfg.WorkDir != "" {
		local = filepath.Join(h.cfg.WorkDir, local)
	}
	info, err := os.Stat(local)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return tools.ErrorResult(fmt.Sprintf("❌ Error: Python file '%s' not found", path)), nil
	case err != nil:
		return tools.ErrorResult(fmt.Sprintf("❌ Error running '%s': %v", path, err)), nil
	case info.IsDir():
		return tools.ErrorResult(fmt.Sprintf("❌ Error: '%s' is a directory, not a script", path)), nil
	}

	res, err := h.cfg.Executor.Execute(ctx, tactile.Command{
		Binary:           h.cfg.Interpreter,
		Arguments:        append([]string{path}, scriptArgs...),
		WorkingDirectory: h.cfg.WorkDir,
		Timeout:          h.cfg.ScriptTimeout,
		RequestID:        uuid.NewString(),
	})
	if err != nil {
		if errors.Is(err, tactile.ErrExecutableNotFound) {
			return tools.ErrorResult(fmt.Sprintf("❌ Error: Interpreter '%s' not found on system", h.cfg.Interpreter)), nil
		}
		return tools.ErrorResult(fmt.Sprintf("❌ Error running '%s': %v", path, err)), nil
	}
	if res.TimedOut {
		logging.ShellWarn("run_python_file timed out: %s", path)
		text := fmt.Sprintf("⏰ Error: Script '%s' timed out after %s", path, h.cfg.ScriptTimeout)
		return tools.Result{ModelText: text, UserText: text, Payload: res, IsError: true}, nil
	}

	var sb strings.Builder
	if res.Stdout != "" {
		fmt.Fprintf(&sb, "📤 STDOUT:\n%s\n", res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprintf(&sb, "🚨 STDERR:\n%s\n", res.Stderr)
	}
	if res.Truncated {
		fmt.Fprintf(&sb, "[output truncated: %d bytes discarded]\n", res.TruncatedBytes)
	}
	fmt.Fprintf(&sb, "🔢 Return code: %d", res.ExitCode)

	logging.Shell("run_python_file %s exited %d in %v", path, res.ExitCode, res.Duration)
	return tools.Result{
		ModelText: sb.String(),
		UserText:  sb.String(),
		Payload:   res,
		IsError:   res.ExitCode != 0,
	}, nil
}
