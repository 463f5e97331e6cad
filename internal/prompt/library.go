// Package prompt manages system prompts: the built-ins baked into the
// binary, user prompts from a directory, and assembly of the final system
// message sent to the model.
package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"localcoder/internal/logging"
)

// DefaultPrompt is used when the configured prompt cannot be found.
const DefaultPrompt = "default"

// ErrPromptNotFound is returned when neither the directory nor the
// built-ins hold a prompt of that name.
var ErrPromptNotFound = errors.New("prompt not found")

//go:embed builtin
var builtinFS embed.FS

// Source tells where a prompt came from.
type Source string

const (
	SourceBuiltin  Source = "built-in"
	SourceFile     Source = "file"
	SourceOverride Source = "file (overrides built-in)"
)

// Prompt is one named system prompt.
type Prompt struct {
	Name        string `yaml:"-"`
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
	Source      Source `yaml:"-"`
	Path        string `yaml:"-"`
}

// promptExts are tried in order when loading a prompt by name.
var promptExts = []string{".yaml", ".yml", ".md", ".txt"}

// Library resolves prompts by name. Files in the directory take precedence
// over built-ins of the same name.
type Library struct {
	dir      string
	builtins map[string]Prompt
}

// NewLibrary loads the built-ins and binds the prompt directory. The
// directory need not exist.
func NewLibrary(dir string) (*Library, error) {
	builtins, err := loadBuiltins()
	if err != nil {
		return nil, err
	}
	logging.Prompt("Prompt library: %d built-ins, dir=%s", len(builtins), dir)
	return &Library{dir: dir, builtins: builtins}, nil
}

// Dir returns the prompt directory.
func (l *Library) Dir() string { return l.dir }

func loadBuiltins() (map[string]Prompt, error) {
	out := make(map[string]Prompt)
	err := fs.WalkDir(builtinFS, "builtin", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".yaml" {
			return nil
		}
		data, err := builtinFS.ReadFile(p)
		if err != nil {
			return err
		}
		var pr Prompt
		if err := yaml.Unmarshal(data, &pr); err != nil {
			return fmt.Errorf("built-in prompt %s: %w", p, err)
		}
		pr.Name = strings.TrimSuffix(path.Base(p), ".yaml")
		pr.Content = strings.TrimSpace(pr.Content)
		pr.Source = SourceBuiltin
		out[pr.Name] = pr
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in prompts: %w", err)
	}
	return out, nil
}

// Get returns the named prompt.
func (l *Library) Get(name string) (Prompt, error) {
	if !validName(name) {
		return Prompt{}, fmt.Errorf("%w: invalid name %q", ErrPromptNotFound, name)
	}
	if p, ok, err := l.loadFile(name); err != nil {
		return Prompt{}, err
	} else if ok {
		if _, builtin := l.builtins[name]; builtin {
			p.Source = SourceOverride
		}
		return p, nil
	}
	if p, ok := l.builtins[name]; ok {
		return p, nil
	}
	return Prompt{}, fmt.Errorf("%w: %s", ErrPromptNotFound, name)
}

// Resolve returns the named prompt, falling back to DefaultPrompt when it
// is missing or unreadable. fellBack reports that the fallback was used.
func (l *Library) Resolve(name string) (p Prompt, fellBack bool, err error) {
	p, err = l.Get(name)
	if err == nil {
		return p, false, nil
	}
	logging.Get(logging.CategoryPrompt).Warn("Prompt %q unavailable (%v), using %s", name, err, DefaultPrompt)
	p, err = l.Get(DefaultPrompt)
	return p, true, err
}

// List returns every available prompt sorted by name.
func (l *Library) List() ([]Prompt, error) {
	byName := make(map[string]Prompt, len(l.builtins))
	for n, p := range l.builtins {
		byName[n] = p
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read prompt directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || strings.EqualFold(e.Name(), "README.md") {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !isPromptExt(ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if _, seen := byName[name]; seen && byName[name].Source != SourceBuiltin {
			continue
		}
		p, err := l.Get(name)
		if err != nil {
			logging.Get(logging.CategoryPrompt).Warn("Skipping prompt file %s: %v", e.Name(), err)
			continue
		}
		byName[name] = p
	}

	out := make([]Prompt, 0, len(byName))
	for _, p := range byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ExportBuiltins writes each built-in as <dir>/<name>.yaml, leaving
// existing files alone. It returns the number of files written.
func (l *Library) ExportBuiltins() (int, error) {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create prompt directory: %w", err)
	}
	names := make([]string, 0, len(l.builtins))
	for n := range l.builtins {
		names = append(names, n)
	}
	sort.Strings(names)

	written := 0
	for _, n := range names {
		target := filepath.Join(l.dir, n+".yaml")
		if _, err := os.Stat(target); err == nil {
			continue
		}
		p := l.builtins[n]
		data, err := yaml.Marshal(&p)
		if err != nil {
			return written, fmt.Errorf("failed to encode prompt %s: %w", n, err)
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return written, fmt.Errorf("failed to write prompt %s: %w", n, err)
		}
		written++
	}
	logging.Prompt("Exported %d built-in prompts to %s", written, l.dir)
	return written, nil
}

func (l *Library) loadFile(name string) (Prompt, bool, error) {
	if l.dir == "" {
		return Prompt{}, false, nil
	}
	for _, ext := range promptExts {
		p := filepath.Join(l.dir, name+ext)
		data, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Prompt{}, false, fmt.Errorf("failed to read prompt %s: %w", p, err)
		}

		pr := Prompt{Name: name, Source: SourceFile, Path: p}
		switch ext {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &pr); err != nil {
				return Prompt{}, false, fmt.Errorf("failed to parse prompt %s: %w", p, err)
			}
			pr.Content = strings.TrimSpace(pr.Content)
		case ".md":
			pr.Content = StripMarkdown(string(data))
		default:
			pr.Content = strings.TrimSpace(string(data))
		}
		if pr.Description == "" {
			pr.Description = "Custom prompt from file"
		}
		if pr.Content == "" {
			return Prompt{}, false, fmt.Errorf("prompt %s is empty", p)
		}
		logging.PromptDebug("Loaded prompt %s from %s (%d chars)", name, p, len(pr.Content))
		return pr, true, nil
	}
	return Prompt{}, false, nil
}

func isPromptExt(ext string) bool {
	for _, e := range promptExts {
		if e == ext {
			return true
		}
	}
	return false
}

// validName refuses names that could address files outside the directory.
func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

var (
	mdFrontMatter = regexp.MustCompile(`(?s)\A\s*---\n.*?\n---[ \t]*\n`)
	mdHeading     = regexp.MustCompile(`(?m)^#+[ \t]*`)
	mdBold        = regexp.MustCompile(`\*\*(.*?)\*\*`)
	mdRule        = regexp.MustCompile(`(?m)^---+[ \t]*$`)
	mdBlankRuns   = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
)

// StripMarkdown removes front matter, heading markers, bold markers and
// horizontal rules so the model receives plain text.
func StripMarkdown(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = mdFrontMatter.ReplaceAllString(content, "")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdBold.ReplaceAllString(content, "$1")
	content = mdRule.ReplaceAllString(content, "")
	content = mdBlankRuns.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
