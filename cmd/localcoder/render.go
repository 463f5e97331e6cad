package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"localcoder/internal/diff"
	"localcoder/internal/tools"
	"localcoder/internal/tools/core"
	"localcoder/internal/types"
)

// showKeywords in the user's input ask for file content to be displayed.
var showKeywords = []string{
	"show", "display", "view", "see", "content", "contents", "read",
	"what is", "what's", "tell me about", "examine", "look at", "open",
	"check", "inspect",
}

// shouldShowResult decides whether a function result is printed for the user.
// Errors and operations are always shown; file content only when asked for.
func shouldShowResult(name tools.CallName, input string, verbose bool, res tools.Result) bool {
	if verbose || res.IsError {
		return true
	}
	switch name {
	case tools.CallListFiles, tools.CallWriteFile, tools.CallAppendFile,
		tools.CallReplaceLines, tools.CallShellCommand, tools.CallRunScript:
		return true
	case tools.CallReadFile, tools.CallSearchFile:
		lower := strings.ToLower(input)
		for _, kw := range showKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

type styles struct {
	call    lipgloss.Style
	header  lipgloss.Style
	file    lipgloss.Style
	notice  lipgloss.Style
	err     lipgloss.Style
	ok      lipgloss.Style
	info    lipgloss.Style
	dim     lipgloss.Style
	heading lipgloss.Style
	added   lipgloss.Style
	removed lipgloss.Style
	hunk    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		call:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		file:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		notice:  r.NewStyle().Foreground(lipgloss.Color("11")),
		err:     r.NewStyle().Foreground(lipgloss.Color("9")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("10")),
		info:    r.NewStyle().Foreground(lipgloss.Color("12")),
		dim:     r.NewStyle().Faint(true),
		heading: r.NewStyle().Bold(true),
		added:   r.NewStyle().Foreground(lipgloss.Color("2")),
		removed: r.NewStyle().Foreground(lipgloss.Color("1")),
		hunk:    r.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// Renderer prints turn progress to the terminal. It implements session.Observer.
type Renderer struct {
	out      io.Writer
	st       styles
	markdown *glamour.TermRenderer
	verbose  bool
	input    string
}

// RenderOptions configures a Renderer.
type RenderOptions struct {
	Verbose  bool
	Markdown bool // render final answers and file content with glamour
	Width    int
}

// NewRenderer writes to out. Markdown rendering falls back to plain text
// when glamour cannot be set up.
func NewRenderer(out io.Writer, opts RenderOptions) *Renderer {
	lg := lipgloss.NewRenderer(out)
	r := &Renderer{out: out, st: newStyles(lg), verbose: opts.Verbose}
	if opts.Markdown {
		width := opts.Width
		if width <= 0 || width > 120 {
			width = 100
		}
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			r.markdown = md
		}
	}
	return r
}

// terminalInfo reports whether f is a terminal and its width.
func terminalInfo(f *os.File) (bool, int) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return false, 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return true, 0
	}
	return true, w
}

// BeginTurn records the user's input for the display policy.
func (r *Renderer) BeginTurn(input string) { r.input = input }

// SetVerbose toggles verbose output.
func (r *Renderer) SetVerbose(v bool) { r.verbose = v }

// Verbose reports whether verbose output is on.
func (r *Renderer) Verbose() bool { return r.verbose }

func (r *Renderer) OnFunctionCall(call types.FunctionCall, n int) {
	if r.verbose {
		fmt.Fprintln(r.out, r.st.dim.Render(fmt.Sprintf("--- Function Call %d ---", n)))
	}
	fmt.Fprintln(r.out, r.st.call.Render("🔧 Calling function: "+call.Name))
}

func (r *Renderer) OnFunctionResult(call types.FunctionCall, res tools.Result) {
	if !shouldShowResult(tools.CallName(call.Name), r.input, r.verbose, res) {
		return
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.st.header.Render("📋 Function Result:"))

	switch p := res.Payload.(type) {
	case []core.FileEntry:
		fmt.Fprintln(r.out, r.st.info.Render(res.UserText))
		fmt.Fprintln(r.out, r.fileTable(p))
	case core.FileContent:
		r.printFileContent(p)
	case *diff.FileDiff:
		fmt.Fprintln(r.out, r.st.ok.Render(res.UserText))
		r.printDiff(p)
	default:
		if res.IsError {
			fmt.Fprintln(r.out, r.st.err.Render(res.UserText))
		} else {
			fmt.Fprintln(r.out, res.UserText)
		}
	}
	fmt.Fprintln(r.out)
}

func (r *Renderer) OnNotice(msg string) { r.Notice("⚠️  " + msg) }

func (r *Renderer) OnFinal(text string) {
	if r.markdown != nil {
		if out, err := r.markdown.Render(text); err == nil {
			fmt.Fprint(r.out, out)
			return
		}
	}
	fmt.Fprintln(r.out, text)
}

func (r *Renderer) OnError(err error) {
	r.Error(fmt.Sprintf("❌ Error: %v", err))
}

// Notice prints a warning line.
func (r *Renderer) Notice(msg string) { fmt.Fprintln(r.out, r.st.notice.Render(msg)) }

// Info, OK, Error, Dim and Heading print single styled lines for command output.
func (r *Renderer) Info(msg string)    { fmt.Fprintln(r.out, r.st.info.Render(msg)) }
func (r *Renderer) OK(msg string)      { fmt.Fprintln(r.out, r.st.ok.Render(msg)) }
func (r *Renderer) Error(msg string)   { fmt.Fprintln(r.out, r.st.err.Render(msg)) }
func (r *Renderer) Dim(msg string)     { fmt.Fprintln(r.out, r.st.dim.Render(msg)) }
func (r *Renderer) Heading(msg string) { fmt.Fprintln(r.out, r.st.heading.Render(msg)) }

// Table prints rows under headers.
func (r *Renderer) Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.st.dim).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(r.out, t.Render())
}

func (r *Renderer) fileTable(entries []core.FileEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		icon := "📄"
		if e.Type == "directory" {
			icon = "📁"
		}
		rows = append(rows, []string{icon + " " + e.Name, e.Type, e.SizeText})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.st.dim).
		Headers("Name", "Type", "Size").
		Rows(rows...).
		Render()
}

func (r *Renderer) printFileContent(fc core.FileContent) {
	fmt.Fprintln(r.out, r.st.file.Render(fmt.Sprintf("📄 %s (%s, %d chars, %d lines)",
		fc.Path, fc.Language, fc.TotalChars, fc.TotalLines)))
	if r.markdown != nil {
		fence := "```"
		if strings.Contains(fc.Content, fence) {
			fence = "````"
		}
		src := fence + fc.Language + "\n" + fc.Content + "\n" + fence
		if out, err := r.markdown.Render(src); err == nil {
			fmt.Fprint(r.out, out)
			return
		}
	}
	fmt.Fprintln(r.out, fc.Content)
}

// maxDiffLines caps how much of an edit is echoed to the terminal.
const maxDiffLines = 60

func (r *Renderer) printDiff(d *diff.FileDiff) {
	if d.Empty() {
		return
	}
	added, removed := d.Stats()
	fmt.Fprintln(r.out, r.st.dim.Render(fmt.Sprintf("%s: +%d -%d", d.Path, added, removed)))

	lines := strings.Split(strings.TrimSuffix(d.Unified(), "\n"), "\n")[2:]
	if len(lines) > maxDiffLines {
		rest := len(lines) - maxDiffLines
		lines = append(lines[:maxDiffLines:maxDiffLines], fmt.Sprintf("... %d more diff lines", rest))
	}
	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "@@"):
			l = r.st.hunk.Render(l)
		case strings.HasPrefix(l, "+"):
			l = r.st.added.Render(l)
		case strings.HasPrefix(l, "-"):
			l = r.st.removed.Render(l)
		}
		fmt.Fprintln(r.out, l)
	}
}
