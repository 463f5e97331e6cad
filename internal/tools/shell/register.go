package shell

import (
	"localcoder/internal/tools"
)

// RegisterAll registers the execution tools with the given registry.
func RegisterAll(registry *tools.Registry, cfg Config) error {
	h := NewHandlers(cfg)
	allTools := []*tools.Tool{
		h.ShellCommandTool(),
		h.RunScriptTool(),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	return nil
}
