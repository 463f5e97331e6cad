// Package diff computes line diffs for file edits so the user can see what a
// write changed. The line matching is done by sergi/go-diff.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged context line
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

// Line is a single line in a hunk.
type Line struct {
	Type    LineType
	Content string
}

// Hunk is a group of changes with surrounding context.
// Starts are 1-based; an empty side starts at the line before it.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// FileDiff is the change to one file.
type FileDiff struct {
	Path  string
	IsNew bool
	Hunks []Hunk
}

// Empty reports whether nothing changed.
func (d *FileDiff) Empty() bool { return d == nil || len(d.Hunks) == 0 }

// Stats counts added and removed lines.
func (d *FileDiff) Stats() (added, removed int) {
	if d == nil {
		return 0, 0
	}
	for _, h := range d.Hunks {
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				added++
			case LineRemoved:
				removed++
			}
		}
	}
	return added, removed
}

// Unified renders the diff in unified format.
func (d *FileDiff) Unified() string {
	if d.Empty() {
		return ""
	}
	var sb strings.Builder
	if d.IsNew {
		sb.WriteString("--- /dev/null\n")
	} else {
		fmt.Fprintf(&sb, "--- a/%s\n", d.Path)
	}
	fmt.Fprintf(&sb, "+++ b/%s\n", d.Path)
	for _, h := range d.Hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				sb.WriteByte('+')
			case LineRemoved:
				sb.WriteByte('-')
			default:
				sb.WriteByte(' ')
			}
			sb.WriteString(l.Content)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Engine computes diffs with a fixed amount of context.
type Engine struct {
	dmp          *diffmatchpatch.DiffMatchPatch
	contextLines int
}

// NewEngine creates an engine that keeps contextLines around each change.
func NewEngine(contextLines int) *Engine {
	if contextLines < 0 {
		contextLines = 0
	}
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return &Engine{dmp: dmp, contextLines: contextLines}
}

// DefaultEngine keeps three lines of context.
var DefaultEngine = NewEngine(3)

// Compute is DefaultEngine.Compute.
func Compute(path, oldContent, newContent string) *FileDiff {
	return DefaultEngine.Compute(path, oldContent, newContent)
}

// Compute diffs two versions of the file at path line by line.
func (e *Engine) Compute(path, oldContent, newContent string) *FileDiff {
	d := &FileDiff{Path: path, IsNew: oldContent == ""}
	if oldContent == newContent {
		return d
	}
	a, b, lineArray := e.dmp.DiffLinesToChars(oldContent, newContent)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCharsToLines(diffs, lineArray)
	d.Hunks = e.group(toLines(diffs))
	return d
}

func toLines(diffs []diffmatchpatch.Diff) []Line {
	var out []Line
	for _, df := range diffs {
		if df.Text == "" {
			continue
		}
		typ := LineContext
		switch df.Type {
		case diffmatchpatch.DiffInsert:
			typ = LineAdded
		case diffmatchpatch.DiffDelete:
			typ = LineRemoved
		}
		for _, s := range strings.Split(strings.TrimSuffix(df.Text, "\n"), "\n") {
			out = append(out, Line{Type: typ, Content: s})
		}
	}
	return out
}

// group splits lines into hunks. Changes separated by more than twice the
// context share no hunk.
func (e *Engine) group(lines []Line) []Hunk {
	n := len(lines)
	// oldPos[i] and newPos[i] count the lines of each side before lines[i].
	oldPos := make([]int, n+1)
	newPos := make([]int, n+1)
	for i, l := range lines {
		oldPos[i+1], newPos[i+1] = oldPos[i], newPos[i]
		if l.Type != LineAdded {
			oldPos[i+1]++
		}
		if l.Type != LineRemoved {
			newPos[i+1]++
		}
	}

	var hunks []Hunk
	for i := 0; i < n; {
		if lines[i].Type == LineContext {
			i++
			continue
		}
		last := i
		for j := i + 1; j < n; j++ {
			if lines[j].Type == LineContext {
				continue
			}
			if j-last-1 > 2*e.contextLines {
				break
			}
			last = j
		}
		start := max(0, i-e.contextLines)
		stop := min(n, last+e.contextLines+1)

		h := Hunk{
			OldStart: oldPos[start] + 1,
			OldCount: oldPos[stop] - oldPos[start],
			NewStart: newPos[start] + 1,
			NewCount: newPos[stop] - newPos[start],
			Lines:    append([]Line(nil), lines[start:stop]...),
		}
		if h.OldCount == 0 {
			h.OldStart--
		}
		if h.NewCount == 0 {
			h.NewStart--
		}
		hunks = append(hunks, h)
		i = stop
	}
	return hunks
}
