// Package config loads and validates localcoder configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the config location relative to the workspace.
const DefaultConfigPath = ".localcoder/config.yaml"

// Config holds all localcoder configuration.
type Config struct {
	// Name of the assistant
	Name string `yaml:"name"`

	LLM       LLMConfig       `yaml:"llm"`
	Agent     AgentConfig     `yaml:"agent"`
	Execution ExecutionConfig `yaml:"execution"`
	Limits    LimitsConfig    `yaml:"limits"`
	Features  FeaturesConfig  `yaml:"features"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AgentConfig configures the turn loop and prompt selection.
type AgentConfig struct {
	// MaxFunctionCalls is the per-turn call ceiling.
	MaxFunctionCalls int `yaml:"max_function_calls"`

	CurrentPrompt string `yaml:"current_prompt"`
	PromptsDir    string `yaml:"prompts_dir"`

	// Trimming. Zero MaxConversationLength disables it.
	MaxConversationLength int `yaml:"max_conversation_length"`
	KeepRecentMessages    int `yaml:"keep_recent_messages"`
}

// FeaturesConfig holds runtime toggles.
type FeaturesConfig struct {
	// ShellCommandsEnabled is the kill switch for shell_command.
	ShellCommandsEnabled bool `yaml:"shell_commands_enabled"`
	Verbose              bool `yaml:"verbose"`
	RenderMarkdown       bool `yaml:"render_markdown"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "localcoder",
		LLM:  DefaultLLMConfig(),
		Agent: AgentConfig{
			MaxFunctionCalls:      5,
			CurrentPrompt:         "default",
			PromptsDir:            "prompts",
			MaxConversationLength: 40,
			KeepRecentMessages:    20,
		},
		Execution: DefaultExecutionConfig(),
		Limits:    DefaultLimitsConfig(),
		Features: FeaturesConfig{
			ShellCommandsEnabled: true,
			RenderMarkdown:       true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.LLM.APIBase = strings.TrimRight(cfg.LLM.APIBase, "/")

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// OLLAMA_HOST is the server's own variable; ours wins when both are set.
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if !strings.Contains(host, "://") {
			host = "http://" + host
		}
		c.LLM.APIBase = host
	}
	if base := os.Getenv("LOCALCODER_API_BASE"); base != "" {
		c.LLM.APIBase = base
	}
	if model := os.Getenv("LOCALCODER_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if v := os.Getenv("LOCALCODER_SHELL_COMMANDS"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Features.ShellCommandsEnabled = enabled
		}
	}
	if v := os.Getenv("LOCALCODER_DEBUG"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = enabled
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Agent.MaxFunctionCalls < 1 {
		errs = append(errs, fmt.Errorf("agent.max_function_calls must be at least 1, got %d", c.Agent.MaxFunctionCalls))
	}
	if c.Agent.MaxConversationLength > 0 && c.Agent.KeepRecentMessages >= c.Agent.MaxConversationLength {
		errs = append(errs, fmt.Errorf("agent.keep_recent_messages (%d) must be below max_conversation_length (%d)",
			c.Agent.KeepRecentMessages, c.Agent.MaxConversationLength))
	}
	if err := c.Execution.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Limits.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
