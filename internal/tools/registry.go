package tools

import (
	"errors"
	"fmt"
	"sync"

	"localcoder/internal/logging"
	"localcoder/internal/types"
)

// Registry holds the tool bound to each call name.
type Registry struct {
	mu    sync.RWMutex
	tools map[CallName]*Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[CallName]*Tool)}
}

// Register adds a tool to the registry.
// Returns an error for unknown names and duplicates.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool %q: %w", tool.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, tool.Name)
	}
	r.tools[tool.Name] = tool

	logging.ToolsDebug("Registered tool: %s (category=%s)", tool.Name, tool.Category)
	return nil
}

// MustRegister registers a tool and panics on error.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name CallName) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// All returns registered tools in KnownCalls order.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Tool, 0, len(r.tools))
	for _, name := range KnownCalls {
		if tool, ok := r.tools[name]; ok {
			result = append(result, tool)
		}
	}
	return result
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Validate fails when any known call name lacks a handler. Call it once at
// startup so a missing binding never reaches a conversation.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, name := range KnownCalls {
		if _, ok := r.tools[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingHandler, name))
		}
	}
	return errors.Join(errs...)
}

// validateArgs checks that all required arguments are present.
func validateArgs(tool *Tool, args types.Arguments) error {
	for _, required := range tool.Schema.Required {
		if !args.Has(required) {
			return fmt.Errorf("%w: %s", types.ErrMissingArgument, required)
		}
	}
	return nil
}
