// Command localcoder is an interactive coding assistant backed by a local
// Ollama model. The model reads and edits files, runs Python scripts and a
// small whitelist of shell commands through JSON function calls.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"localcoder/internal/config"
	"localcoder/internal/logging"
)

var (
	// Global flags
	configPath string
	modelFlag  string
	apiBase    string
	promptFlag string
	verbose    bool
	noShell    bool
	workspace  string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "localcoder",
	Short: "Local AI coding assistant for Ollama",
	Long: `localcoder is a terminal coding assistant that talks to a local Ollama server.

The model works on the current directory through function calls: it can list,
read, search and edit files, run Python scripts, and run a small whitelist of
shell commands (mkdir, touch, ls, pwd, echo). Arguments are never passed to a
shell, and paths that leave the working directory are rejected.

Run without arguments to start the interactive chat. Type /help inside it for
the slash commands.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		zc.OutputPaths = []string{"stderr"}
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if workspace != "" {
			if err := os.Chdir(workspace); err != nil {
				return fmt.Errorf("failed to enter workspace: %w", err)
			}
		}
		ws, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve workspace: %w", err)
		}
		workspace = ws
		if configPath == "" {
			configPath = filepath.Join(workspace, config.DefaultConfigPath)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, cfg)

		if err := logging.Initialize(workspace, cfg.Logging.ToLogging()); err != nil {
			logger.Warn("file logging unavailable", zap.Error(err))
		}
		logging.Boot("localcoder starting: command=%s config=%s", cmd.CommandPath(), configPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runInteractive,
}

// applyFlagOverrides lets explicitly set flags win over the config file.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		c.LLM.Model = modelFlag
	}
	if flags.Changed("api-base") {
		c.LLM.APIBase = apiBase
	}
	if flags.Changed("prompt") {
		c.Agent.CurrentPrompt = promptFlag
	}
	if verbose {
		c.Features.Verbose = true
	}
	if noShell {
		c.Features.ShellCommandsEnabled = false
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/"+config.DefaultConfigPath+")")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Model to use (overrides config)")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api-base", "", "Ollama API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&promptFlag, "prompt", "p", "", "System prompt name (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output and debug logging")
	rootCmd.PersistentFlags().BoolVar(&noShell, "no-shell", false, "Start with shell commands disabled")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")

	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
