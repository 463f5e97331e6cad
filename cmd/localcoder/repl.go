package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// historyPath is where REPL history persists between sessions.
func historyPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "localcoder", "history"), nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	app, err := buildApp()
	if err != nil {
		return err
	}
	return app.repl(ctx)
}

// repl reads lines until /quit or EOF. Ctrl-C aborts the current line only.
func (a *App) repl(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeSlash)

	hist, err := historyPath()
	if err != nil {
		a.logger.Warn("history unavailable", zap.Error(err))
	} else if f, err := os.Open(hist); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer a.saveHistory(line, hist)

	a.banner()
	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := line.Prompt(a.promptLabel())
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			a.render.Notice("👋 Interrupted. Use /quit to exit.")
			continue
		case errors.Is(err, io.EOF):
			a.render.OK("\n👋 Goodbye!")
			return nil
		case err != nil:
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if a.handleSlash(ctx, input) {
				return nil
			}
			continue
		}
		// Ctrl-C while the model works cancels the turn, not the session.
		turnCtx, cancel := signal.NotifyContext(ctx, os.Interrupt)
		_, _ = a.Ask(turnCtx, input)
		cancel()
	}
}

func (a *App) saveHistory(line *liner.State, path string) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		a.logger.Warn("create history dir", zap.Error(err))
		return
	}
	f, err := os.Create(path)
	if err != nil {
		a.logger.Warn("create history file", zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		a.logger.Warn("write history", zap.Error(err))
	}
}

// promptLabel shows the model and, when short, the working directory.
func (a *App) promptLabel() string {
	dir := filepath.Base(a.workspace)
	if dir != "" && dir != "." && dir != string(filepath.Separator) && len(dir) < 20 {
		return fmt.Sprintf("[%s:%s]> ", a.ollama.Model(), dir)
	}
	return fmt.Sprintf("[%s]> ", a.ollama.Model())
}

func (a *App) banner() {
	a.render.Heading("🤖 localcoder")
	a.render.Table([]string{"Setting", "Value"}, [][]string{
		{"Model", a.ollama.Model()},
		{"API base", a.ollama.BaseURL()},
		{"System prompt", a.current.Name},
		{"Shell commands", onOff(a.cfg.Features.ShellCommandsEnabled, "enabled", "disabled")},
		{"Working dir", a.workspace},
	})
	a.render.Dim("💡 Type /help for commands, ↑/↓ for history, /quit to exit")
}

// completeSlash completes slash command names.
func completeSlash(prefix string) []string {
	if !strings.HasPrefix(prefix, "/") || strings.Contains(prefix, " ") {
		return nil
	}
	var out []string
	for _, c := range slashCommands {
		for _, n := range c.names {
			if strings.HasPrefix("/"+n, prefix) {
				out = append(out, "/"+n)
			}
		}
	}
	return out
}
