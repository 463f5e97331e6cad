package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"localcoder/internal/config"
	"localcoder/internal/logging"
	"localcoder/internal/perception"
	"localcoder/internal/prompt"
	"localcoder/internal/session"
	"localcoder/internal/tactile"
	"localcoder/internal/tools"
	"localcoder/internal/tools/core"
	"localcoder/internal/tools/shell"
	"localcoder/internal/types"
)

// App holds one assistant session and everything it is wired to.
type App struct {
	cfg       *config.Config
	cfgPath   string
	workspace string
	sessionID string
	logger    *zap.Logger

	ollama   *perception.OllamaClient
	stats    *perception.ChatStats
	registry *tools.Registry
	prompts  *prompt.Library
	current  prompt.Prompt

	loop   *session.Loop
	render *Renderer
}

// appOptions carries what newApp needs beyond the config.
type appOptions struct {
	Workspace  string
	ConfigPath string
	Out        io.Writer
	Markdown   bool
	Width      int
	Logger     *zap.Logger
}

// newApp validates cfg and builds the client, tools, prompt and turn loop.
func newApp(cfg *config.Config, opts appOptions) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timer := logging.StartTimer(logging.CategoryBoot, "newApp")
	defer timer.Stop()

	app := &App{
		cfg:       cfg,
		cfgPath:   opts.ConfigPath,
		workspace: opts.Workspace,
		sessionID: uuid.NewString(),
		logger:    logger,
		stats:     &perception.ChatStats{},
	}

	app.ollama = perception.NewOllamaClient(perception.OllamaConfig{
		BaseURL: cfg.LLM.APIBase,
		Model:   cfg.LLM.Model,
		Options: samplingOptions(cfg.LLM.Options),
		Timeout: cfg.LLM.GetTimeout(),
	})
	client := perception.NewTracingClient(app.ollama, app.stats, app.sessionID)

	// File and execution tools share one root so the model sees a single tree.
	workDir := app.resolve(cfg.Execution.WorkingDir)
	if workDir != "" {
		if err := os.MkdirAll(workDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create working directory: %w", err)
		}
	}
	reg := tools.NewRegistry()
	if err := core.RegisterAll(reg, fileLimits(cfg.Limits), workDir); err != nil {
		return nil, fmt.Errorf("failed to register file tools: %w", err)
	}
	executor := tactile.NewDirectExecutorWithConfig(tactile.ExecutorConfig{
		DefaultWorkingDir:  workDir,
		DefaultTimeout:     cfg.Execution.GetCommandTimeout(),
		MaxOutputBytes:     cfg.Execution.MaxOutputBytes,
		AllowedEnvironment: cfg.Execution.AllowedEnv,
	})
	executor.SetAuditCallback(func(ev tactile.AuditEvent) {
		logger.Debug("exec audit",
			zap.String("type", string(ev.Type)),
			zap.String("command", ev.Command.CommandString()),
			zap.String("request_id", ev.Command.RequestID))
	})
	if err := shell.RegisterAll(reg, shell.Config{
		Executor:       executor,
		CommandTimeout: cfg.Execution.GetCommandTimeout(),
		ScriptTimeout:  cfg.Execution.GetScriptTimeout(),
		Interpreter:    cfg.Execution.ScriptInterpreter,
		WorkDir:        workDir,
	}); err != nil {
		return nil, fmt.Errorf("failed to register execution tools: %w", err)
	}
	dispatcher, err := tools.NewDispatcher(reg, cfg.Limits.ResultMaxChars)
	if err != nil {
		return nil, err
	}
	app.registry = reg

	lib, err := prompt.NewLibrary(app.resolve(cfg.Agent.PromptsDir))
	if err != nil {
		return nil, err
	}
	app.prompts = lib
	p, fellBack, err := lib.Resolve(cfg.Agent.CurrentPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to load system prompt: %w", err)
	}
	if fellBack {
		logger.Warn("configured prompt unavailable, using default",
			zap.String("prompt", cfg.Agent.CurrentPrompt))
		cfg.Agent.CurrentPrompt = p.Name
	}
	app.current = p

	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	app.render = NewRenderer(out, RenderOptions{
		Verbose:  cfg.Features.Verbose,
		Markdown: opts.Markdown && cfg.Features.RenderMarkdown,
		Width:    opts.Width,
	})

	var trimmer session.Trimmer
	if cfg.Agent.MaxConversationLength > 0 {
		trimmer = session.KeepRecent{
			MaxLength: cfg.Agent.MaxConversationLength,
			Keep:      cfg.Agent.KeepRecentMessages,
		}
	}
	app.loop = session.NewLoop(client, dispatcher, types.NewConversation(app.systemPrompt()), session.LoopConfig{
		MaxCalls: cfg.Agent.MaxFunctionCalls,
		Flags:    tools.FeatureFlags{ShellCommandsEnabled: cfg.Features.ShellCommandsEnabled},
		Observer: app.render,
		Trimmer:  trimmer,
	})

	logger.Info("session ready",
		zap.String("session_id", app.sessionID),
		zap.String("model", cfg.LLM.Model),
		zap.String("api_base", cfg.LLM.APIBase),
		zap.String("prompt", p.Name),
		zap.Bool("shell_commands", cfg.Features.ShellCommandsEnabled))
	return app, nil
}

// resolve anchors a relative path at the workspace.
func (a *App) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || a.workspace == "" {
		return p
	}
	return filepath.Join(a.workspace, p)
}

// systemPrompt renders the current prompt with the function list for the
// current shell setting.
func (a *App) systemPrompt() string {
	return prompt.BuildSystemPrompt(
		a.current.Content,
		a.registry.All(),
		a.cfg.Features.ShellCommandsEnabled,
		shell.DefaultWhitelist().Names(),
	)
}

// resetConversation starts over with a freshly built system prompt.
func (a *App) resetConversation() {
	a.loop.Conversation().Reset(a.systemPrompt())
}

// setShellEnabled flips the kill switch and rebuilds the system prompt so
// the model's function list matches what the dispatcher will allow.
func (a *App) setShellEnabled(on bool) {
	a.cfg.Features.ShellCommandsEnabled = on
	a.loop.SetFlags(tools.FeatureFlags{ShellCommandsEnabled: on})
	a.resetConversation()
}

// syncOptions pushes the configured sampling options to the client.
func (a *App) syncOptions() {
	a.ollama.SetOptions(samplingOptions(a.cfg.LLM.Options))
}

// Ask runs one turn.
func (a *App) Ask(ctx context.Context, input string) (*session.TurnResult, error) {
	a.render.BeginTurn(input)
	res, err := a.loop.RunTurn(ctx, input)
	if res != nil {
		a.logger.Debug("turn finished",
			zap.String("outcome", res.Outcome.String()),
			zap.Int("calls", res.CallsExecuted),
			zap.Duration("duration", res.Duration))
	}
	return res, err
}

func samplingOptions(s config.SamplingConfig) perception.Options {
	return perception.Options{
		Temperature:   s.Temperature,
		TopP:          s.TopP,
		TopK:          s.TopK,
		NumPredict:    s.NumPredict,
		RepeatPenalty: s.RepeatPenalty,
	}
}

func fileLimits(l config.LimitsConfig) core.Limits {
	return core.Limits{
		ReadMaxChars:       l.ReadMaxChars,
		ExcerptMaxChars:    l.ExcerptMaxChars,
		HeadLines:          l.ExcerptHeadLines,
		TailLines:          l.ExcerptTailLines,
		ContextLines:       l.ContextLines,
		SearchContextLines: l.SearchContextLines,
		SearchMaxMatches:   l.SearchMaxMatches,
	}
}
