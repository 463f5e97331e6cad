package shell

import (
	"runtime"
	"slices"
	"sync"
)

// CommandSpec is one whitelist entry.
type CommandSpec struct {
	// Name is what the model asks for.
	Name string

	// Executable is what actually runs. The user-typed alias never reaches the executor.
	Executable string

	Description string
	MaxArgs     int

	// MutatesFS enables the absolute-path and escape checks on its arguments.
	MutatesFS bool

	// Platforms restricts the entry to the listed GOOS values; empty means all.
	Platforms []string
}

func (s CommandSpec) appliesTo(goos string) bool {
	return len(s.Platforms) == 0 || slices.Contains(s.Platforms, goos)
}

var commandTable = []CommandSpec{
	{Name: "mkdir", Executable: "mkdir", Description: "Create directory", MaxArgs: 2, MutatesFS: true},
	{Name: "touch", Executable: "touch", Description: "Create empty file", MaxArgs: 1, MutatesFS: true},
	{Name: "ls", Executable: "ls", Description: "List directory contents", MaxArgs: 2},
	{Name: "pwd", Executable: "pwd", Description: "Show current directory", MaxArgs: 0},
	{Name: "echo", Executable: "echo", Description: "Print text", MaxArgs: 10},
	{Name: "dir", Executable: "dir", Description: "List directory contents (Windows)", MaxArgs: 1, Platforms: []string{"windows"}},
	{Name: "md", Executable: "md", Description: "Create directory (Windows)", MaxArgs: 1, MutatesFS: true, Platforms: []string{"windows"}},
}

// Whitelist is the closed set of commands for one operating system.
// It is never modified after construction.
type Whitelist struct {
	specs map[string]CommandSpec
	order []string
}

// NewWhitelist builds the whitelist for goos.
func NewWhitelist(goos string) *Whitelist {
	w := &Whitelist{specs: make(map[string]CommandSpec)}
	for _, s := range commandTable {
		if !s.appliesTo(goos) {
			continue
		}
		s.Platforms = slices.Clone(s.Platforms)
		w.specs[s.Name] = s
		w.order = append(w.order, s.Name)
	}
	return w
}

// DefaultWhitelist returns the process-wide whitelist for the host OS.
var DefaultWhitelist = sync.OnceValue(func() *Whitelist {
	return NewWhitelist(runtime.GOOS)
})

// Lookup returns the spec registered under name.
func (w *Whitelist) Lookup(name string) (CommandSpec, bool) {
	s, ok := w.specs[name]
	return s, ok
}

// Names returns the command names in table order.
func (w *Whitelist) Names() []string {
	return slices.Clone(w.order)
}

// Specs returns copies of every entry in table order.
func (w *Whitelist) Specs() []CommandSpec {
	out := make([]CommandSpec, 0, len(w.order))
	for _, n := range w.order {
		out = append(out, w.specs[n])
	}
	return out
}
