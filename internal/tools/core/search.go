package core

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"localcoder/internal/logging"
	"localcoder/internal/tools"
	"localcoder/internal/types"
)

// SearchMatch is one line containing the search text.
type SearchMatch struct {
	Line int
	Text string
}

// SearchFileTool returns a tool that locates text in a file and returns the
// lines around each occurrence.
func (ft *FileTools) SearchFileTool() *tools.Tool {
	return &tools.Tool{
		Name:        tools.CallSearchFile,
		Description: "Find text in a file and show the surrounding lines with line numbers",
		Category:    tools.CategoryFiles,
		Execute:     ft.executeSearchFile,
		Schema: tools.ToolSchema{
			Required: []string{"file_path", "search"},
			Properties: map[string]tools.Property{
				"file_path":      {Type: "string", Description: "The file to search"},
				"search":         {Type: "string", Description: "Text to find (plain substring)"},
				"context_lines":  {Type: "integer", Description: "Lines of context around each match (optional)"},
				"max_matches":    {Type: "integer", Description: "Maximum matches to show (optional)"},
				"case_sensitive": {Type: "boolean", Description: "Match case exactly (default: true)", Default: true},
			},
			Order: []string{"file_path", "search", "context_lines", "max_matches", "case_sensitive"},
		},
	}
}

func (ft *FileTools) executeSearchFile(ctx context.Context, args types.Arguments) (tools.Result, error) {
	path, err := args.String("file_path")
	if err != nil {
		return tools.Result{}, err
	}
	needle, err := args.String("search")
	if err != nil {
		return tools.Result{}, err
	}
	if needle == "" {
		return tools.Result{}, fmt.Errorf("search text must not be empty")
	}
	ctxLines, err := args.OptionalInt("context_lines", ft.limits.SearchContextLines)
	if err != nil {
		return tools.Result{}, err
	}
	maxMatches, err := args.OptionalInt("max_matches", ft.limits.SearchMaxMatches)
	if err != nil {
		return tools.Result{}, err
	}
	caseSensitive, err := args.OptionalBool("case_sensitive", true)
	if err != nil {
		return tools.Result{}, err
	}
	ctxLines = max(0, ctxLines)
	if maxMatches <= 0 {
		maxMatches = ft.limits.SearchMaxMatches
	}

	logging.ToolsDebug("search_file_content: path=%s search=%q context=%d", path, needle, ctxLines)

	data, err := os.ReadFile(ft.resolve(path))
	if err != nil {
		return tools.ErrorResult(describeFileError("reading", path, err)), nil
	}
	if !utf8.Valid(data) {
		return tools.ErrorResult(fmt.Sprintf("❌ Error: Cannot read '%s' - binary file or encoding issue", path)), nil
	}

	lines := splitLines(string(data))
	matches := findMatches(lines, needle, caseSensitive)
	if len(matches) == 0 {
		return tools.TextResult(fmt.Sprintf("Text '%s' not found in '%s'", needle, path)), nil
	}

	shown := matches
	if len(shown) > maxMatches {
		shown = shown[:maxMatches]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d match(es) for '%s' in '%s' (%d lines total):\n", len(matches), needle, path, len(lines))
	marked := make(map[int]bool, len(shown))
	for _, m := range shown {
		marked[m.Line] = true
	}
	for i, w := range mergeWindows(shown, ctxLines, len(lines)) {
		if i > 0 {
			sb.WriteString("    ...\n")
		}
		sb.WriteString(numberLines(lines, w[0], w[1], marked))
	}
	if rest := len(matches) - len(shown); rest > 0 {
		fmt.Fprintf(&sb, "[%d more match(es) not shown; raise max_matches to see them]\n", rest)
	}

	model := boundChars(sb.String(), ft.limits.ExcerptMaxChars)
	return tools.Result{
		ModelText: model,
		UserText:  fmt.Sprintf("🔎 %d match(es) for '%s' in %s\n%s", len(matches), needle, path, sb.String()),
		Payload:   matches,
	}, nil
}

func findMatches(lines []string, needle string, caseSensitive bool) []SearchMatch {
	if !caseSensitive {
		needle = strings.ToLower(needle)
	}
	var matches []SearchMatch
	for i, line := range lines {
		hay := line
		if !caseSensitive {
			hay = strings.ToLower(line)
		}
		if strings.Contains(hay, needle) {
			matches = append(matches, SearchMatch{Line: i + 1, Text: line})
		}
	}
	return matches
}

// mergeWindows turns matches into [from, to] line windows, joining windows
// that touch or overlap.
func mergeWindows(matches []SearchMatch, ctxLines, total int) [][2]int {
	var windows [][2]int
	for _, m := range matches {
		from := max(1, m.Line-ctxLines)
		to := min(total, m.Line+ctxLines)
		if n := len(windows); n > 0 && from <= windows[n-1][1]+1 {
			windows[n-1][1] = max(windows[n-1][1], to)
			continue
		}
		windows = append(windows, [2]int{from, to})
	}
	return windows
}
