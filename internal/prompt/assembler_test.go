package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localcoder/internal/tools"
	"localcoder/internal/tools/core"
	"localcoder/internal/tools/shell"
)

func allTools(t *testing.T) []*tools.Tool {
	t.Helper()
	reg := tools.NewRegistry()
	require.NoError(t, core.RegisterAll(reg, core.DefaultLimits(), ""))
	require.NoError(t, shell.RegisterAll(reg, shell.Config{}))
	return reg.All()
}

func TestBuildSystemPrompt_ShellEnabled(t *testing.T) {
	got := BuildSystemPrompt("You are helpful.\n", allTools(t), true, []string{"mkdir", "ls"})

	assert.True(t, strings.HasPrefix(got, "You are helpful.\n\nFUNCTION CALLING:"))
	assert.Contains(t, got, `"function_call": {`)
	assert.Contains(t, got, "- get_files_info: List files in a directory\n    directory (string): ")
	assert.Contains(t, got, "    file_path (string, required): The file path to read\n")
	assert.Contains(t, got, "    args (array of string): Arguments passed to the command\n")
	assert.Contains(t, got, "- shell_command: ")
	assert.Contains(t, got, "restricted to a safe whitelist: mkdir, ls")
	assert.True(t, strings.HasSuffix(got, "then use write_file for adding content."))

	// Functions appear in registry order.
	assert.Less(t, strings.Index(got, "- get_files_info"), strings.Index(got, "- get_file_content"))
	assert.Less(t, strings.Index(got, "- replace_lines"), strings.Index(got, "- run_python_file"))
}

func TestBuildSystemPrompt_ShellDisabled(t *testing.T) {
	got := BuildSystemPrompt("Base.", allTools(t), false, []string{"mkdir"})

	assert.NotContains(t, got, "- shell_command:")
	assert.NotContains(t, got, "SHELL COMMANDS ENABLED")
	assert.NotContains(t, got, "safe whitelist")
	assert.Contains(t, got, "- run_python_file:")
}

func TestStripMarkdown(t *testing.T) {
	in := "---\ntitle: x\n---\n# Heading\n\n\n\nBody with **bold**.\n\n----\n"
	assert.Equal(t, "Heading\n\nBody with bold.", StripMarkdown(in))
}
