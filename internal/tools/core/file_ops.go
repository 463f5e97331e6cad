package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"localcoder/internal/diff"
	"localcoder/internal/logging"
	"localcoder/internal/tools"
	"localcoder/internal/types"
)

// FileEntry is one row of a directory listing.
type FileEntry struct {
	Name     string
	Type     string // "file", "directory", "symlink" or "unknown"
	Size     int64
	SizeText string
}

// FileContent is the payload of a file read.
type FileContent struct {
	Path       string
	Language   string
	Content    string
	TotalChars int
	TotalLines int
}

// =============================================================================
// get_files_info
// =============================================================================

// ListFilesTool returns a tool for listing directory contents.
func (ft *FileTools) ListFilesTool() *tools.Tool {
	return &tools.Tool{
		Name:        tools.CallListFiles,
		Description: "List files in a directory",
		Category:    tools.CategoryFiles,
		Execute:     ft.executeListFiles,
		Schema: tools.ToolSchema{
			Properties: map[string]tools.Property{
				"directory": {Type: "string", Description: "Directory to list (default: \".\")", Default: "."},
			},
			Order: []string{"directory"},
		},
	}
}

func (ft *FileTools) executeListFiles(ctx context.Context, args types.Arguments) (tools.Result, error) {
	dir, err := args.OptionalString("directory", ".")
	if err != nil {
		return tools.Result{}, err
	}
	if dir == "" {
		dir = "."
	}
	logging.ToolsDebug("get_files_info: directory=%s", dir)

	entries, err := os.ReadDir(ft.resolve(dir))
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return tools.ErrorResult(fmt.Sprintf("❌ Error: Directory '%s' not found", dir)), nil
		case errors.Is(err, fs.ErrPermission):
			return tools.ErrorResult(fmt.Sprintf("❌ Error: Permission denied accessing '%s'", dir)), nil
		default:
			return tools.ErrorResult(fmt.Sprintf("❌ Error: Cannot list '%s': %v", dir, err)), nil
		}
	}

	lines := make([]string, 0, len(entries))
	rows := make([]FileEntry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			lines = append(lines, fmt.Sprintf("%s (unknown)", e.Name()))
			rows = append(rows, FileEntry{Name: e.Name(), Type: "unknown", SizeText: "unknown"})
			continue
		}
		kind := "file"
		switch {
		case info.IsDir():
			kind = "directory"
		case info.Mode()&fs.ModeSymlink != 0:
			kind = "symlink"
		}
		lines = append(lines, fmt.Sprintf("%s (%s, %d bytes)", e.Name(), kind, info.Size()))
		rows = append(rows, FileEntry{Name: e.Name(), Type: kind, Size: info.Size(), SizeText: formatSize(info.Size())})
	}

	model := fmt.Sprintf("Files in '%s':\n%s", dir, strings.Join(lines, "\n"))
	if len(entries) == 0 {
		model = fmt.Sprintf("Directory '%s' is empty", dir)
	}
	return tools.Result{
		ModelText: model,
		UserText:  fmt.Sprintf("📁 Files in '%s' (%d entries)", dir, len(entries)),
		Payload:   rows,
	}, nil
}

// =============================================================================
// get_file_content
// =============================================================================

// ReadFileTool returns a tool for reading file contents.
func (ft *FileTools) ReadFileTool() *tools.Tool {
	return &tools.Tool{
		Name:        tools.CallReadFile,
		Description: "Read file content. Large files are excerpted; use start_line/end_line, max_chars or target_line to choose what to see",
		Category:    tools.CategoryFiles,
		Execute:     ft.executeReadFile,
		Schema: tools.ToolSchema{
			Required: []string{"file_path"},
			Properties: map[string]tools.Property{
				"file_path":   {Type: "string", Description: "The file path to read"},
				"start_line":  {Type: "integer", Description: "First line to return (1-indexed, optional)"},
				"end_line":    {Type: "integer", Description: "Last line to return (inclusive, optional)"},
				"max_chars":   {Type: "integer", Description: "Character budget for a plain read (optional)"},
				"smart":       {Type: "boolean", Description: "Return head and tail of large files (optional)"},
				"target_line": {Type: "integer", Description: "Return the lines around this line (optional)"},
			},
			Order: []string{"file_path", "start_line", "end_line", "max_chars", "smart", "target_line"},
		},
	}
}

func (ft *FileTools) executeReadFile(ctx context.Context, args types.Arguments) (tools.Result, error) {
	path, err := args.String("file_path")
	if err != nil {
		return tools.Result{}, err
	}
	startLine, err := args.OptionalInt("start_line", 0)
	if err != nil {
		return tools.Result{}, err
	}
	endLine, err := args.OptionalInt("end_line", 0)
	if err != nil {
		return tools.Result{}, err
	}
	maxChars, err := args.OptionalInt("max_chars", 0)
	if err != nil {
		return tools.Result{}, err
	}
	smart, err := args.OptionalBool("smart", false)
	if err != nil {
		return tools.Result{}, err
	}
	target, err := args.OptionalInt("target_line", 0)
	if err != nil {
		return tools.Result{}, err
	}

	logging.ToolsDebug("get_file_content: path=%s start=%d end=%d max=%d smart=%v target=%d",
		path, startLine, endLine, maxChars, smart, target)

	data, err := os.ReadFile(ft.resolve(path))
	if err != nil {
		return tools.ErrorResult(describeFileError("reading", path, err)), nil
	}
	if !utf8.Valid(data) {
		return tools.ErrorResult(fmt.Sprintf("❌ Error: Cannot read '%s' - binary file or encoding issue", path)), nil
	}

	content := string(data)
	lines := splitLines(content)
	totalChars := utf8.RuneCountInString(content)

	var excerpt string
	switch {
	case args.Has("start_line") || args.Has("end_line"):
		excerpt, err = ft.lineRange(lines, startLine, endLine)
	case smart || target > 0:
		excerpt, err = ft.smartExcerpt(content, lines, target)
	default:
		excerpt = ft.wholeFile(path, content, totalChars, maxChars)
	}
	if err != nil {
		return tools.ErrorResult(fmt.Sprintf("❌ Error: %v", err)), nil
	}

	lang := DetectLanguage(path)
	return tools.Result{
		ModelText: fmt.Sprintf("Content of '%s':\n%s", path, excerpt),
		UserText:  fmt.Sprintf("📄 %s (%s, %d chars):\n%s", path, lang, totalChars, content),
		Payload: FileContent{
			Path:       path,
			Language:   lang,
			Content:    content,
			TotalChars: totalChars,
			TotalLines: len(lines),
		},
	}, nil
}

// wholeFile returns content, or its first budget characters with a note on
// the remainder.
func (ft *FileTools) wholeFile(path, content string, total, maxChars int) string {
	budget := ft.limits.ReadMaxChars
	if maxChars > 0 {
		budget = min(maxChars, ft.limits.ExcerptMaxChars)
	}
	if total <= budget {
		return content
	}
	cut := content
	n := 0
	for i := range content {
		if n == budget {
			cut = content[:i]
			break
		}
		n++
	}
	return cut + fmt.Sprintf("\n[Note: '%s' has %d total characters; showing the first %d, %d omitted. "+
		"Use start_line/end_line or target_line to read other parts.]", path, total, budget, total-budget)
}

// lineRange returns the inclusive numbered range. Zero bounds mean "from the
// start" and "to the end".
func (ft *FileTools) lineRange(lines []string, start, end int) (string, error) {
	total := len(lines)
	if start == 0 {
		start = 1
	}
	if end == 0 || end > total {
		end = total
	}
	if start < 1 {
		return "", fmt.Errorf("start_line must be at least 1, got %d", start)
	}
	if start > total {
		return "", fmt.Errorf("start_line %d is beyond end of file (%d lines)", start, total)
	}
	if end < start {
		return "", fmt.Errorf("end_line %d is before start_line %d", end, start)
	}
	header := fmt.Sprintf("[lines %d-%d of %d]\n", start, end, total)
	return boundChars(header+numberLines(lines, start, end, nil), ft.limits.ExcerptMaxChars), nil
}

// =============================================================================
// write_file / append_file
// =============================================================================

// WriteFileTool returns a tool for writing file contents.
func (ft *FileTools) WriteFileTool() *tools.Tool {
	return &tools.Tool{
		Name:        tools.CallWriteFile,
		Description: "Write content to a file, replacing what was there",
		Category:    tools.CategoryFiles,
		Execute:     ft.executeWriteFile,
		Schema: tools.ToolSchema{
			Required: []string{"file_path"},
			Properties: map[string]tools.Property{
				"file_path": {Type: "string", Description: "The file path to write"},
				"content":   {Type: "string", Description: "The content to write"},
			},
			Order: []string{"file_path", "content"},
		},
	}
}

func (ft *FileTools) executeWriteFile(ctx context.Context, args types.Arguments) (tools.Result, error) {
	path, err := args.String("file_path")
	if err != nil {
		return tools.Result{}, err
	}
	content, err := args.OptionalString("content", "")
	if err != nil {
		return tools.Result{}, err
	}

	logging.ToolsDebug("write_file: path=%s, content_len=%d", path, len(content))

	abs := ft.resolve(path)
	before := readExisting(abs)
	if dir := filepath.Dir(abs); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return tools.ErrorResult(describeFileError("writing to", path, err)), nil
		}
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return tools.ErrorResult(describeFileError("writing to", path, err)), nil
	}

	return changeResult(fmt.Sprintf("✅ Successfully wrote %d characters to '%s'",
		utf8.RuneCountInString(content), path), path, before, content), nil
}

// AppendFileTool returns a tool for appending to a file.
func (ft *FileTools) AppendFileTool() *tools.Tool {
	return &tools.Tool{
		Name:        tools.CallAppendFile,
		Description: "Append content to the end of a file, creating it if needed",
		Category:    tools.CategoryFiles,
		Execute:     ft.executeAppendFile,
		Schema: tools.ToolSchema{
			Required: []string{"file_path", "content"},
			Properties: map[string]tools.Property{
				"file_path": {Type: "string", Description: "The file path to append to"},
				"content":   {Type: "string", Description: "The content to append"},
			},
			Order: []string{"file_path", "content"},
		},
	}
}

func (ft *FileTools) executeAppendFile(ctx context.Context, args types.Arguments) (tools.Result, error) {
	path, err := args.String("file_path")
	if err != nil {
		return tools.Result{}, err
	}
	content, err := args.String("content")
	if err != nil {
		return tools.Result{}, err
	}

	logging.ToolsDebug("append_file: path=%s, content_len=%d", path, len(content))

	abs := ft.resolve(path)
	before := readExisting(abs)
	f, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return tools.ErrorResult(describeFileError("appending to", path, err)), nil
	}
	_, werr := f.WriteString(content)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		return tools.ErrorResult(describeFileError("appending to", path, err)), nil
	}

	return changeResult(fmt.Sprintf("✅ Appended %d characters to '%s'",
		utf8.RuneCountInString(content), path), path, before, before+content), nil
}

// =============================================================================
// replace_lines
// =============================================================================

// ReplaceLinesTool returns a tool that replaces an inclusive line range.
func (ft *FileTools) ReplaceLinesTool() *tools.Tool {
	return &tools.Tool{
		Name:        tools.CallReplaceLines,
		Description: "Replace lines start_line..end_line (inclusive, 1-indexed) with new content; empty content deletes them",
		Category:    tools.CategoryFiles,
		Execute:     ft.executeReplaceLines,
		Schema: tools.ToolSchema{
			Required: []string{"file_path", "start_line", "end_line"},
			Properties: map[string]tools.Property{
				"file_path":  {Type: "string", Description: "The file to edit"},
				"start_line": {Type: "integer", Description: "First line to replace (1-indexed)"},
				"end_line":   {Type: "integer", Description: "Last line to replace (inclusive)"},
				"content":    {Type: "string", Description: "Replacement text"},
			},
			Order: []string{"file_path", "start_line", "end_line", "content"},
		},
	}
}

func (ft *FileTools) executeReplaceLines(ctx context.Context, args types.Arguments) (tools.Result, error) {
	path, err := args.String("file_path")
	if err != nil {
		return tools.Result{}, err
	}
	start, err := args.Int("start_line")
	if err != nil {
		return tools.Result{}, err
	}
	end, err := args.Int("end_line")
	if err != nil {
		return tools.Result{}, err
	}
	replacement, err := args.OptionalString("content", "")
	if err != nil {
		return tools.Result{}, err
	}

	logging.ToolsDebug("replace_lines: path=%s lines=%d-%d", path, start, end)

	abs := ft.resolve(path)
	info, err := os.Stat(abs)
	if err != nil {
		return tools.ErrorResult(describeFileError("editing", path, err)), nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return tools.ErrorResult(describeFileError("editing", path, err)), nil
	}

	content := string(data)
	lines := splitLines(content)
	total := len(lines)
	if start < 1 || end < start || end > total {
		return tools.ErrorResult(fmt.Sprintf("❌ Error: invalid line range %d-%d for '%s' (%d lines)",
			start, end, path, total)), nil
	}

	newLines := splitLines(replacement)
	updated := make([]string, 0, total-(end-start+1)+len(newLines))
	updated = append(updated, lines[:start-1]...)
	updated = append(updated, newLines...)
	updated = append(updated, lines[end:]...)

	out := strings.Join(updated, "\n")
	if len(updated) > 0 && (strings.HasSuffix(content, "\n") || end == total && strings.HasSuffix(replacement, "\n")) {
		out += "\n"
	}
	if err := os.WriteFile(abs, []byte(out), info.Mode().Perm()); err != nil {
		return tools.ErrorResult(describeFileError("writing to", path, err)), nil
	}

	msg := fmt.Sprintf("✅ Replaced lines %d-%d of '%s' (%d lines removed, %d inserted; file now has %d lines)",
		start, end, path, end-start+1, len(newLines), len(updated))
	return changeResult(msg, path, content, out), nil
}

// readExisting returns the current contents of path, or "" when it cannot be read.
func readExisting(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// changeResult attaches the diff of an edit to its result for display.
func changeResult(msg, path, before, after string) tools.Result {
	res := tools.TextResult(msg)
	res.Payload = diff.Compute(path, before, after)
	return res
}
