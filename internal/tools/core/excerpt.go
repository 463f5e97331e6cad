package core

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"localcoder/internal/tools"
)

// splitLines splits content into lines without a phantom empty line after a
// trailing newline.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// numberLines renders lines[from-1:to] with 1-based line numbers. Lines in
// marked get a ">" gutter.
func numberLines(lines []string, from, to int, marked map[int]bool) string {
	var sb strings.Builder
	for n := from; n <= to; n++ {
		gutter := " "
		if marked[n] {
			gutter = ">"
		}
		fmt.Fprintf(&sb, "%s%5d| %s\n", gutter, n, lines[n-1])
	}
	return sb.String()
}

// boundChars cuts text to limit characters, stating what was omitted.
func boundChars(text string, limit int) string {
	return tools.Truncate(text, limit)
}

// smartExcerpt picks a model-facing excerpt of content. With a target line
// it returns a window around that line; otherwise small files are returned
// whole and large ones as head + tail with the gap stated.
func (ft *FileTools) smartExcerpt(content string, lines []string, target int) (string, error) {
	l := ft.limits
	total := len(lines)

	if target > 0 {
		if target > total {
			return "", fmt.Errorf("target_line %d is beyond end of file (%d lines)", target, total)
		}
		from := max(1, target-l.ContextLines)
		to := min(total, target+l.ContextLines)
		body := numberLines(lines, from, to, map[int]bool{target: true})
		header := fmt.Sprintf("[lines %d-%d of %d, centered on line %d]\n", from, to, total, target)
		return boundChars(header+body, l.ExcerptMaxChars), nil
	}

	if utf8.RuneCountInString(content) <= l.ExcerptMaxChars {
		return content, nil
	}
	if total <= l.HeadLines+l.TailLines {
		return boundChars(content, l.ExcerptMaxChars), nil
	}

	head := numberLines(lines, 1, l.HeadLines, nil)
	tailFrom := total - l.TailLines + 1
	gap := fmt.Sprintf("... [%d lines omitted (lines %d-%d); request start_line/end_line or target_line to see them] ...\n",
		tailFrom-l.HeadLines-1, l.HeadLines+1, tailFrom-1)
	var tail string
	if l.TailLines > 0 {
		tail = numberLines(lines, tailFrom, total, nil)
	}
	return boundChars(head+gap+tail, l.ExcerptMaxChars), nil
}

// describeFileError turns common filesystem errors into user-facing text.
func describeFileError(action, path string, err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Sprintf("❌ Error: File '%s' not found", path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Sprintf("❌ Error: Permission denied %s '%s'", action, path)
	default:
		return fmt.Sprintf("❌ Error %s '%s': %v", action, path, err)
	}
}

// formatSize renders a byte count for display.
func formatSize(size int64) string {
	switch {
	case size > 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	case size > 1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%d B", size)
	}
}

var languageByExt = map[string]string{
	".go": "go", ".py": "python", ".js": "javascript", ".jsx": "javascript",
	".ts": "typescript", ".tsx": "typescript", ".java": "java", ".c": "c",
	".h": "c", ".cpp": "cpp", ".cc": "cpp", ".hpp": "cpp", ".cs": "csharp",
	".rb": "ruby", ".rs": "rust", ".php": "php", ".swift": "swift",
	".kt": "kotlin", ".scala": "scala", ".sh": "bash", ".bash": "bash",
	".zsh": "zsh", ".ps1": "powershell", ".sql": "sql", ".html": "html",
	".css": "css", ".scss": "scss", ".json": "json", ".yaml": "yaml",
	".yml": "yaml", ".toml": "toml", ".xml": "xml", ".md": "markdown",
	".r": "r", ".lua": "lua", ".pl": "perl", ".vim": "vim",
	".dockerfile": "dockerfile", ".mk": "makefile",
}

// DetectLanguage guesses a syntax-highlighting language from the file name.
func DetectLanguage(path string) string {
	base := strings.ToLower(filepath.Base(path))
	switch base {
	case "dockerfile":
		return "dockerfile"
	case "makefile":
		return "makefile"
	}
	if lang, ok := languageByExt[strings.ToLower(filepath.Ext(base))]; ok {
		return lang
	}
	return "text"
}
