package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"localcoder/internal/config"
	"localcoder/internal/prompt"
)

// slashCommand is one REPL command. run returns true to leave the REPL.
type slashCommand struct {
	names []string
	usage string
	help  string
	run   func(a *App, ctx context.Context, args []string) bool
}

// samplingParam binds a slash command to one sampling option.
type samplingParam struct {
	names []string
	icon  string
	label string
	rng   string
	get   func(o config.SamplingConfig) string
	set   func(c *config.LLMConfig, raw string) error
}

var samplingParams = []samplingParam{
	{
		names: []string{"temperature", "temp"}, icon: "🌡️", label: "Temperature", rng: "0.0-2.0",
		get: func(o config.SamplingConfig) string { return formatFloat(o.Temperature) },
		set: func(c *config.LLMConfig, raw string) error {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("invalid temperature %q, use a number (e.g. 0.7)", raw)
			}
			return c.SetTemperature(v)
		},
	},
	{
		names: []string{"top_p", "topp"}, icon: "🎯", label: "Top P", rng: "0.0-1.0",
		get: func(o config.SamplingConfig) string { return formatFloat(o.TopP) },
		set: func(c *config.LLMConfig, raw string) error {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("invalid top_p %q, use a number (e.g. 0.9)", raw)
			}
			return c.SetTopP(v)
		},
	},
	{
		names: []string{"top_k", "topk"}, icon: "🔢", label: "Top K", rng: "1-100",
		get: func(o config.SamplingConfig) string { return strconv.Itoa(o.TopK) },
		set: func(c *config.LLMConfig, raw string) error {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid top_k %q, use an integer (e.g. 40)", raw)
			}
			return c.SetTopK(v)
		},
	},
	{
		names: []string{"num_predict", "maxtokens"}, icon: "📏", label: "Max tokens", rng: "1-8192",
		get: func(o config.SamplingConfig) string { return strconv.Itoa(o.NumPredict) },
		set: func(c *config.LLMConfig, raw string) error {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid num_predict %q, use an integer (e.g. 4096)", raw)
			}
			return c.SetNumPredict(v)
		},
	},
	{
		names: []string{"repeat_penalty", "penalty"}, icon: "🔄", label: "Repeat penalty", rng: "0.5-2.0",
		get: func(o config.SamplingConfig) string { return formatFloat(o.RepeatPenalty) },
		set: func(c *config.LLMConfig, raw string) error {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("invalid repeat_penalty %q, use a number (e.g. 1.1)", raw)
			}
			return c.SetRepeatPenalty(v)
		},
	},
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

var slashCommands []slashCommand

func init() {
	slashCommands = []slashCommand{
		{names: []string{"help", "h", "?"}, help: "Show this help", run: cmdHelp},
		{names: []string{"quit", "exit", "q"}, help: "Leave localcoder", run: cmdQuit},
		{names: []string{"clear"}, help: "Clear the conversation history", run: cmdClear},
		{names: []string{"model"}, usage: "[name]", help: "Show or switch the model", run: cmdModel},
		{names: []string{"listmodels", "models"}, help: "List models on the server", run: cmdListModels},
		{names: []string{"verbose"}, help: "Toggle verbose output", run: cmdVerbose},
		{names: []string{"shellcmds"}, usage: "[on|off]", help: "Show or toggle shell commands (kill switch)", run: cmdShell},
		{names: []string{"params"}, help: "Show sampling parameters", run: cmdParams},
		{names: []string{"prompt"}, usage: "[name]", help: "Show or switch the system prompt", run: cmdPrompt},
		{names: []string{"prompts"}, help: "List available prompts", run: cmdPrompts},
		{names: []string{"exportprompts"}, help: "Write built-in prompts to the prompt directory", run: cmdExportPrompts},
		{names: []string{"status"}, help: "Show connection, model and session stats", run: cmdStatus},
		{names: []string{"save"}, help: "Save the current settings to the config file", run: cmdSave},
	}
	for _, p := range samplingParams {
		slashCommands = append(slashCommands, slashCommand{
			names: p.names,
			usage: "[" + p.rng + "]",
			help:  "Show or set " + strings.ToLower(p.label),
			run: func(a *App, _ context.Context, args []string) bool {
				setSampling(a, p, args)
				return false
			},
		})
	}
}

func findSlash(name string) (slashCommand, bool) {
	for _, c := range slashCommands {
		for _, n := range c.names {
			if n == name {
				return c, true
			}
		}
	}
	return slashCommand{}, false
}

// handleSlash runs a "/command args" line. It returns true when the REPL
// should exit.
func (a *App) handleSlash(ctx context.Context, line string) bool {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	if len(fields) == 0 {
		a.render.Error("❌ Empty command")
		a.render.Dim("💡 Use /help to see available commands")
		return false
	}
	name := strings.ToLower(fields[0])
	cmd, ok := findSlash(name)
	if !ok {
		a.render.Error("❌ Unknown command: /" + name)
		a.render.Dim("💡 Use /help to see available commands")
		return false
	}
	a.logger.Sugar().Debugw("slash command", "command", name, "args", fields[1:])
	return cmd.run(a, ctx, fields[1:])
}

func cmdHelp(a *App, _ context.Context, _ []string) bool {
	rows := make([][]string, 0, len(slashCommands))
	for _, c := range slashCommands {
		name := "/" + strings.Join(c.names, ", /")
		if c.usage != "" {
			name += " " + c.usage
		}
		rows = append(rows, []string{name, c.help})
	}
	a.render.Table([]string{"Command", "Description"}, rows)
	return false
}

func cmdQuit(a *App, _ context.Context, _ []string) bool {
	a.render.OK("👋 Goodbye!")
	return true
}

func cmdClear(a *App, _ context.Context, _ []string) bool {
	a.resetConversation()
	a.render.OK("🧹 Conversation history cleared")
	return false
}

func cmdModel(a *App, _ context.Context, args []string) bool {
	if len(args) == 0 {
		a.render.Info("🤖 Current model: " + a.ollama.Model())
		a.render.Dim("💡 Usage: /model <name>, /listmodels to see what is available")
		return false
	}
	a.ollama.SetModel(args[0])
	a.cfg.LLM.Model = args[0]
	a.render.OK("✅ Switched to model: " + args[0])
	return false
}

func cmdListModels(a *App, ctx context.Context, _ []string) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	models, err := a.ollama.ListModels(ctx)
	if err != nil {
		a.render.Error(fmt.Sprintf("❌ Failed to list models: %v", err))
		return false
	}
	if len(models) == 0 {
		a.render.Info("No models installed. Pull one with: ollama pull " + a.cfg.LLM.Model)
		return false
	}
	a.render.Table([]string{"Model", "Size", "Modified"}, modelRows(models, a.ollama.Model()))
	return false
}

func cmdVerbose(a *App, _ context.Context, _ []string) bool {
	on := !a.render.Verbose()
	a.render.SetVerbose(on)
	a.cfg.Features.Verbose = on
	a.render.Info("🔧 Verbose mode " + onOff(on, "enabled", "disabled"))
	return false
}

func cmdShell(a *App, _ context.Context, args []string) bool {
	if len(args) == 0 {
		a.render.Info("🖥️  Shell commands: " + onOff(a.cfg.Features.ShellCommandsEnabled, "enabled", "disabled"))
		a.render.Dim("💡 Usage: /shellcmds <on|off>")
		return false
	}
	on, ok := parseSwitch(args[0])
	if !ok {
		a.render.Error("❌ Invalid option. Use 'on' or 'off'")
		return false
	}
	a.setShellEnabled(on)
	if on {
		a.render.OK("🖥️  Shell commands enabled")
		a.render.Dim("🔄 Conversation reset with shell command instructions")
	} else {
		a.render.Error("🖥️  Shell commands disabled (kill switch active)")
		a.render.Dim("🔄 Conversation reset without shell command instructions")
	}
	return false
}

func cmdParams(a *App, _ context.Context, _ []string) bool {
	rows := make([][]string, 0, len(samplingParams))
	for _, p := range samplingParams {
		rows = append(rows, []string{p.icon + " " + p.label, p.get(a.cfg.LLM.Options), p.rng})
	}
	a.render.Table([]string{"Parameter", "Value", "Range"}, rows)
	return false
}

func setSampling(a *App, p samplingParam, args []string) {
	if len(args) == 0 {
		a.render.Info(fmt.Sprintf("%s Current %s: %s", p.icon, strings.ToLower(p.label), p.get(a.cfg.LLM.Options)))
		a.render.Dim(fmt.Sprintf("💡 Usage: /%s <%s>", p.names[0], p.rng))
		return
	}
	if err := p.set(&a.cfg.LLM, args[0]); err != nil {
		a.render.Error("❌ " + err.Error())
		return
	}
	a.syncOptions()
	a.render.Info(fmt.Sprintf("%s %s set to: %s", p.icon, p.label, p.get(a.cfg.LLM.Options)))
}

func cmdPrompt(a *App, _ context.Context, args []string) bool {
	if len(args) == 0 {
		a.render.Info(fmt.Sprintf("📋 Current prompt: %s (%s)", a.current.Name, a.current.Source))
		a.render.Dim("💡 Usage: /prompt <name>, /prompts to see what is available")
		return false
	}
	p, err := a.prompts.Get(args[0])
	if err != nil {
		if errors.Is(err, prompt.ErrPromptNotFound) {
			a.render.Error("❌ Unknown prompt: " + args[0])
			a.render.Dim("💡 Use /prompts to see available prompts")
		} else {
			a.render.Error(fmt.Sprintf("❌ %v", err))
		}
		return false
	}
	a.current = p
	a.cfg.Agent.CurrentPrompt = p.Name
	a.resetConversation()
	a.render.OK(fmt.Sprintf("✅ Switched to prompt: %s (%s)", p.Name, p.Source))
	a.render.Dim("🔄 Conversation history cleared for new prompt")
	return false
}

func cmdPrompts(a *App, _ context.Context, _ []string) bool {
	list, err := a.prompts.List()
	if err != nil {
		a.render.Error(fmt.Sprintf("❌ %v", err))
		return false
	}
	a.render.Table([]string{"Prompt", "Source", "Description"}, promptRows(list, a.current.Name))
	a.render.Dim("💡 Prompt files live in " + a.prompts.Dir() + " (.yaml, .md or .txt)")
	return false
}

func cmdExportPrompts(a *App, _ context.Context, _ []string) bool {
	n, err := a.prompts.ExportBuiltins()
	if err != nil {
		a.render.Error(fmt.Sprintf("❌ %v", err))
		return false
	}
	a.render.OK(fmt.Sprintf("✅ Exported %d built-in prompt(s) to %s", n, a.prompts.Dir()))
	return false
}

func cmdStatus(a *App, ctx context.Context, _ []string) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn := "✅ connected"
	if err := a.ollama.Ping(ctx); err != nil {
		conn = fmt.Sprintf("❌ %v", err)
	}
	a.render.Table([]string{"Setting", "Value"}, statusRows(a, conn))
	return false
}

func cmdSave(a *App, _ context.Context, _ []string) bool {
	if err := a.cfg.Save(a.cfgPath); err != nil {
		a.render.Error(fmt.Sprintf("❌ %v", err))
		return false
	}
	a.render.OK("💾 Settings saved to " + a.cfgPath)
	return false
}

func statusRows(a *App, conn string) [][]string {
	stats := a.stats.Snapshot()
	loop := a.loop.Stats()
	rows := [][]string{
		{"🌐 API base", a.ollama.BaseURL() + "  " + conn},
		{"🤖 Model", a.ollama.Model()},
		{"📋 System prompt", fmt.Sprintf("%s (%s)", a.current.Name, a.current.Source)},
		{"🖥️  Shell commands", onOff(a.cfg.Features.ShellCommandsEnabled, "enabled", "disabled")},
		{"🔧 Verbose mode", onOff(a.render.Verbose(), "enabled", "disabled")},
		{"💬 Messages", strconv.Itoa(loop.Messages)},
		{"🔁 Turns / calls", fmt.Sprintf("%d / %d", loop.Turns, loop.FunctionCalls)},
		{"📡 Requests", fmt.Sprintf("%d (%d failed, avg %s)", stats.Requests, stats.Failures, stats.AvgDuration.Round(time.Millisecond))},
	}
	if stats.LastError != "" {
		rows = append(rows, []string{"⚠️  Last error", stats.LastError})
	}
	return rows
}

func promptRows(list []prompt.Prompt, current string) [][]string {
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		name := p.Name
		if p.Name == current {
			name = "▶ " + name
		}
		rows = append(rows, []string{name, string(p.Source), p.Description})
	}
	return rows
}

func onOff(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}

// parseSwitch accepts the usual spellings of on and off.
func parseSwitch(s string) (on bool, ok bool) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "enable", "yes":
		return true, true
	case "off", "false", "0", "disable", "no":
		return false, true
	}
	return false, false
}
