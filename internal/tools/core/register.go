package core

import (
	"path/filepath"

	"localcoder/internal/tools"
)

// Limits bounds the model-facing renderings of file reads.
type Limits struct {
	ReadMaxChars       int // whole-file read before excerpting
	ExcerptMaxChars    int // smart excerpt and line-range budget
	HeadLines          int
	TailLines          int
	ContextLines       int // window around a target line
	SearchContextLines int
	SearchMaxMatches   int
}

// DefaultLimits returns the stock read limits.
func DefaultLimits() Limits {
	return Limits{
		ReadMaxChars:       2000,
		ExcerptMaxChars:    3000,
		HeadLines:          20,
		TailLines:          10,
		ContextLines:       10,
		SearchContextLines: 5,
		SearchMaxMatches:   5,
	}
}

// FileTools builds the filesystem handlers around a shared set of limits.
// Relative paths resolve against workDir, or the process cwd when it is empty.
type FileTools struct {
	limits  Limits
	workDir string
}

// NewFileTools returns handlers using limits, rooted at the process cwd.
func NewFileTools(limits Limits) *FileTools {
	return &FileTools{limits: limits}
}

// NewFileToolsAt returns handlers rooted at workDir.
func NewFileToolsAt(workDir string, limits Limits) *FileTools {
	return &FileTools{limits: limits, workDir: workDir}
}

// resolve maps a model-supplied path onto the filesystem. Messages keep
// showing the path as the model wrote it.
func (ft *FileTools) resolve(path string) string {
	if ft.workDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(ft.workDir, path)
}

// RegisterAll registers all filesystem tools with the given registry.
// workDir must match the directory the execution tools run in.
func RegisterAll(registry *tools.Registry, limits Limits, workDir string) error {
	ft := NewFileToolsAt(workDir, limits)
	allTools := []*tools.Tool{
		ft.ListFilesTool(),
		ft.ReadFileTool(),
		ft.SearchFileTool(),
		ft.WriteFileTool(),
		ft.AppendFileTool(),
		ft.ReplaceLinesTool(),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
