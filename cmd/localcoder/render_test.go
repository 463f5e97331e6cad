package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"localcoder/internal/diff"
	"localcoder/internal/tools"
	"localcoder/internal/tools/core"
	"localcoder/internal/types"
)

func TestShouldShowResult(t *testing.T) {
	ok := tools.TextResult("x")
	tests := []struct {
		name    string
		call    tools.CallName
		input   string
		verbose bool
		res     tools.Result
		want    bool
	}{
		{"listing always", tools.CallListFiles, "hi", false, ok, true},
		{"write always", tools.CallWriteFile, "hi", false, ok, true},
		{"script always", tools.CallRunScript, "hi", false, ok, true},
		{"shell always", tools.CallShellCommand, "hi", false, ok, true},
		{"read hidden", tools.CallReadFile, "summarize main.py", false, ok, false},
		{"read on show", tools.CallReadFile, "Show me main.py", false, ok, true},
		{"read on what's", tools.CallReadFile, "what's in main.py", false, ok, true},
		{"search on inspect", tools.CallSearchFile, "inspect the TODOs", false, ok, true},
		{"read when verbose", tools.CallReadFile, "summarize", true, ok, true},
		{"errors always", tools.CallReadFile, "summarize", false, tools.ErrorResult("❌"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldShowResult(tt.call, tt.input, tt.verbose, tt.res))
		})
	}
}

func TestRenderer_FileListing(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, RenderOptions{})
	r.BeginTurn("list files")

	r.OnFunctionResult(types.FunctionCall{Name: "get_files_info"}, tools.Result{
		UserText: "📁 Files in '.' (2 entries)",
		Payload: []core.FileEntry{
			{Name: "src", Type: "directory", SizeText: "4.0 KB"},
			{Name: "main.go", Type: "file", SizeText: "120 B"},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "📋 Function Result:")
	assert.Contains(t, out, "📁 Files in '.' (2 entries)")
	assert.Contains(t, out, "📁 src")
	assert.Contains(t, out, "📄 main.go")
	assert.Contains(t, out, "120 B")
}

func TestRenderer_FileContentHiddenUnlessAsked(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, RenderOptions{})
	res := tools.Result{Payload: core.FileContent{Path: "a.py", Language: "python", Content: "print(1)", TotalChars: 8, TotalLines: 1}}

	r.BeginTurn("fix a.py")
	r.OnFunctionResult(types.FunctionCall{Name: "get_file_content"}, res)
	assert.Empty(t, buf.String())

	r.BeginTurn("show a.py")
	r.OnFunctionResult(types.FunctionCall{Name: "get_file_content"}, res)
	assert.Contains(t, buf.String(), "📄 a.py (python, 8 chars, 1 lines)")
	assert.Contains(t, buf.String(), "print(1)")
}

func TestRenderer_Lines(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, RenderOptions{Verbose: true})

	r.OnFunctionCall(types.FunctionCall{Name: "write_file"}, 2)
	r.OnNotice("Reached maximum function calls (5). Stopping to prevent loops.")
	r.OnError(errors.New("connection refused"))
	r.OnFinal("All done.")

	out := buf.String()
	assert.Contains(t, out, "--- Function Call 2 ---")
	assert.Contains(t, out, "🔧 Calling function: write_file")
	assert.Contains(t, out, "⚠️  Reached maximum function calls (5)")
	assert.Contains(t, out, "❌ Error: connection refused")
	assert.Contains(t, out, "All done.\n")
}

func TestRenderer_WriteShowsDiff(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, RenderOptions{})
	r.BeginTurn("rename the greeting")

	msg := "✅ Successfully wrote 12 characters to 'a.txt'"
	r.OnFunctionResult(types.FunctionCall{Name: "write_file"}, tools.Result{
		ModelText: msg,
		UserText:  msg,
		Payload:   diff.Compute("a.txt", "hello\nworld\n", "hello\nthere\n"),
	})
	out := buf.String()
	assert.Contains(t, out, msg)
	assert.Contains(t, out, "a.txt: +1 -1")
	assert.Contains(t, out, "@@ -1,2 +1,2 @@")
	assert.Contains(t, out, "-world")
	assert.Contains(t, out, "+there")
	assert.NotContains(t, out, "+++ b/a.txt")
}
