package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"localcoder/internal/session"
	"localcoder/internal/types"
)

// runCmd executes a single prompt and exits
var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run one prompt through the assistant and exit",
	Long: `Sends one prompt to the model and lets it call functions until it answers,
or until the per-turn function call limit is reached.

Example:
  localcoder run "list the files here and summarize main.py"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSingle,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available on the Ollama server",
	RunE:  listModels,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connection and configuration status",
	RunE:  showStatus,
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List available system prompts",
	RunE:  listPrompts,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config and export built-in prompts",
	Long: `Writes the current configuration (defaults plus any flags) to the config
file and copies the built-in prompts into the prompt directory so they can be
edited. Existing prompt files are left alone.`,
	RunE: initConfig,
}

// buildApp wires an App writing to stdout.
func buildApp() (*App, error) {
	tty, width := terminalInfo(os.Stdout)
	return newApp(cfg, appOptions{
		Workspace:  workspace,
		ConfigPath: configPath,
		Out:        os.Stdout,
		Markdown:   tty,
		Width:      width,
		Logger:     logger,
	})
}

func runSingle(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp()
	if err != nil {
		return err
	}
	input := strings.Join(args, " ")
	logger.Info("Processing prompt", zap.Int("chars", len(input)))

	res, err := app.Ask(ctx, input)
	if err != nil {
		return fmt.Errorf("turn failed: %w", err)
	}
	if res.Outcome == session.OutcomeBudgetExhausted {
		logger.Warn("turn stopped at the function call limit", zap.Int("calls", res.CallsExecuted))
	}
	return nil
}

func listModels(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	models, err := app.ollama.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	if len(models) == 0 {
		app.render.Info("No models installed. Pull one with: ollama pull " + cfg.LLM.Model)
		return nil
	}
	app.render.Table([]string{"Model", "Size", "Modified"}, modelRows(models, app.ollama.Model()))
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	cmdStatus(app, cmd.Context(), nil)
	return nil
}

func listPrompts(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	cmdPrompts(app, cmd.Context(), nil)
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	if err := cfg.Save(configPath); err != nil {
		return err
	}
	app.render.OK("✅ Wrote " + configPath)
	cmdExportPrompts(app, cmd.Context(), nil)
	return nil
}

// modelRows renders models for a table, marking the active one.
func modelRows(models []types.ModelInfo, current string) [][]string {
	rows := make([][]string, 0, len(models))
	for _, m := range models {
		name := m.Name
		if m.Name == current {
			name = "▶ " + name
		}
		modified := m.ModifiedAt
		if t, err := time.Parse(time.RFC3339Nano, m.ModifiedAt); err == nil {
			modified = t.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{name, humanize.IBytes(uint64(max(m.Size, 0))), modified})
	}
	return rows
}
