package config

import (
	"fmt"
	"time"
)

// ExecutionConfig configures subprocess execution.
type ExecutionConfig struct {
	CommandTimeout    string   `yaml:"command_timeout"`    // whitelisted shell commands
	ScriptTimeout     string   `yaml:"script_timeout"`     // run_python_file
	ScriptInterpreter string   `yaml:"script_interpreter"` // e.g. python3
	WorkingDir        string   `yaml:"working_dir"`        // empty means the process cwd
	MaxOutputBytes    int64    `yaml:"max_output_bytes"`
	AllowedEnv        []string `yaml:"allowed_env"`
}

// DefaultExecutionConfig returns the default execution settings.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		CommandTimeout:    "10s",
		ScriptTimeout:     "30s",
		ScriptInterpreter: "python3",
		MaxOutputBytes:    1024 * 1024,
		AllowedEnv: []string{
			"PATH", "HOME", "USER", "LANG", "LC_ALL", "TERM", "TMPDIR",
			"PYTHONPATH", "VIRTUAL_ENV", "SYSTEMROOT", "PATHEXT", "COMSPEC",
		},
	}
}

// GetCommandTimeout returns the shell command timeout as a duration.
func (c *ExecutionConfig) GetCommandTimeout() time.Duration {
	return parseDuration(c.CommandTimeout, 10*time.Second)
}

// GetScriptTimeout returns the script timeout as a duration.
func (c *ExecutionConfig) GetScriptTimeout() time.Duration {
	return parseDuration(c.ScriptTimeout, 30*time.Second)
}

// Validate checks durations and the interpreter.
func (c *ExecutionConfig) Validate() error {
	for _, f := range [][2]string{
		{"execution.command_timeout", c.CommandTimeout},
		{"execution.script_timeout", c.ScriptTimeout},
	} {
		if f[1] == "" {
			continue
		}
		if d, err := time.ParseDuration(f[1]); err != nil || d <= 0 {
			return fmt.Errorf("%s: invalid duration %q", f[0], f[1])
		}
	}
	if c.ScriptInterpreter == "" {
		return fmt.Errorf("execution.script_interpreter must not be empty")
	}
	if c.MaxOutputBytes < 0 {
		return fmt.Errorf("execution.max_output_bytes must not be negative")
	}
	return nil
}
