package prompt

import (
	"fmt"
	"strings"

	"localcoder/internal/tools"
)

const callFormat = `FUNCTION CALLING:
When you need to work with files or run code, respond with a JSON object in this exact format:

{
  "function_call": {
    "name": "function_name",
    "arguments": {
      "param1": "value1"
    }
  }
}

Make one function call per response. The result comes back to you in a message starting with "Function result:". When you have what you need, answer in plain text without a function call.`

const notes = `Important notes:
- Use relative paths from the current working directory
- When asked about the "root" directory, use "." as the directory path
- Only call functions when the task actually needs files, scripts or commands
- For simple questions or explanations, just respond with text
- Large files are shown as excerpts; ask for start_line/end_line or target_line to see more`

const shellBlock = `SHELL COMMANDS ENABLED:
You have access to safe shell commands via the shell_command function. Use these for common file operations:

- Create directories: shell_command with {"command": "mkdir", "args": ["dirname"]}
- Create empty files: shell_command with {"command": "touch", "args": ["filename"]}
- List directory contents: shell_command with {"command": "ls", "args": []} or {"command": "ls", "args": ["-la"]}
- Show current directory: shell_command with {"command": "pwd", "args": []}
- Print text: shell_command with {"command": "echo", "args": ["text"]}

Examples of natural usage:
- "create a directory called test-folder" → shell_command: mkdir test-folder
- "make an empty file called app.py" → shell_command: touch app.py
- "show me what's in this directory" → shell_command: ls -la

Arguments are passed literally; there is no shell. Pipes, redirection, command chaining, "..", "~/" and absolute paths are rejected.
Use shell commands as your first choice for creating files and directories, then use write_file for adding content.`

// BuildSystemPrompt assembles the system message: the base prompt, the
// call format, the available functions rendered from their schemas, and the
// shell block when shell commands are on. shell_command is omitted from the
// function list while they are off.
func BuildSystemPrompt(base string, available []*tools.Tool, shellEnabled bool, whitelist []string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(base))
	sb.WriteString("\n\n")
	sb.WriteString(callFormat)
	sb.WriteString("\n\nAvailable functions:\n")

	for _, t := range available {
		if t.Name == tools.CallShellCommand && !shellEnabled {
			continue
		}
		writeTool(&sb, t)
	}

	sb.WriteString("\n")
	sb.WriteString(notes)
	if len(whitelist) > 0 && shellEnabled {
		fmt.Fprintf(&sb, "\n- Shell commands are restricted to a safe whitelist: %s", strings.Join(whitelist, ", "))
	}

	if shellEnabled {
		sb.WriteString("\n\n")
		sb.WriteString(shellBlock)
	}
	return sb.String()
}

func writeTool(sb *strings.Builder, t *tools.Tool) {
	fmt.Fprintf(sb, "- %s: %s\n", t.Name, t.Description)

	required := make(map[string]bool, len(t.Schema.Required))
	for _, r := range t.Schema.Required {
		required[r] = true
	}
	order := t.Schema.Order
	if len(order) == 0 {
		order = t.Schema.Required
	}
	for _, name := range order {
		prop, ok := t.Schema.Properties[name]
		if !ok {
			continue
		}
		typ := prop.Type
		if prop.Items != nil {
			typ = "array of " + prop.Items.Type
		}
		if required[name] {
			typ += ", required"
		}
		fmt.Fprintf(sb, "    %s (%s): %s\n", name, typ, prop.Description)
	}
}
