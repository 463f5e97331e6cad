package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"localcoder/internal/config"
	"localcoder/internal/session"
	"localcoder/internal/types"
)

// fakeOllama answers /api/chat with scripted replies and /api/tags with a
// fixed model list.
type fakeOllama struct {
	mu       sync.Mutex
	replies  []string
	requests [][]types.Message
	options  []map[string]any
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/tags":
		_ = json.NewEncoder(w).Encode(map[string]any{"models": []map[string]any{
			{"name": "qwen2.5-coder:7b", "size": 4683087332, "modified_at": "2026-01-02T03:04:05Z"},
			{"name": "llama3:8b", "size": 512},
		}})
	case "/api/chat":
		var req struct {
			Messages []types.Message `json:"messages"`
			Options  map[string]any  `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, req.Messages)
		f.options = append(f.options, req.Options)
		reply := "done"
		if len(f.replies) > 0 {
			reply, f.replies = f.replies[0], f.replies[1:]
		}
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": reply},
			"done":    true,
		})
	default:
		http.NotFound(w, r)
	}
}

func newTestApp(t *testing.T, fake *fakeOllama, mutate func(*config.Config)) (*App, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	ws := t.TempDir()
	c := config.DefaultConfig()
	c.LLM.APIBase = srv.URL
	c.LLM.Timeout = "5s"
	if mutate != nil {
		mutate(c)
	}

	var out bytes.Buffer
	app, err := newApp(c, appOptions{
		Workspace:  ws,
		ConfigPath: filepath.Join(ws, config.DefaultConfigPath),
		Out:        &out,
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	return app, &out
}

func TestNewApp_RejectsInvalidConfig(t *testing.T) {
	c := config.DefaultConfig()
	c.LLM.Options.Temperature = 5
	_, err := newApp(c, appOptions{Workspace: t.TempDir()})
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestNewApp_SystemPromptFollowsShellSetting(t *testing.T) {
	app, _ := newTestApp(t, &fakeOllama{}, nil)
	sys := app.loop.Conversation().System()
	assert.Contains(t, sys, "- shell_command:")
	assert.Contains(t, sys, "SHELL COMMANDS ENABLED")

	off, _ := newTestApp(t, &fakeOllama{}, func(c *config.Config) { c.Features.ShellCommandsEnabled = false })
	sys = off.loop.Conversation().System()
	assert.NotContains(t, sys, "- shell_command:")
	assert.False(t, off.loop.Flags().ShellCommandsEnabled)
}

func TestNewApp_UnknownPromptFallsBack(t *testing.T) {
	app, _ := newTestApp(t, &fakeOllama{}, func(c *config.Config) { c.Agent.CurrentPrompt = "missing" })
	assert.Equal(t, "default", app.current.Name)
	assert.Equal(t, "default", app.cfg.Agent.CurrentPrompt)
}

func TestAsk_ListsWorkspaceAndAnswers(t *testing.T) {
	fake := &fakeOllama{}
	app, out := newTestApp(t, fake, nil)
	require.NoError(t, os.WriteFile(filepath.Join(app.workspace, "main.py"), []byte("print('hi')\n"), 0644))

	dir, err := json.Marshal(filepath.ToSlash(app.workspace))
	require.NoError(t, err)
	fake.replies = []string{
		`Let me look. {"function_call": {"name": "get_files_info", "arguments": {"directory": ` + string(dir) + `}}}`,
		"There is one file: main.py.",
	}

	res, err := app.Ask(context.Background(), "what files are here?")
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeFinal, res.Outcome)
	assert.Equal(t, 1, res.CallsExecuted)

	require.Len(t, fake.requests, 2)
	fed := fake.requests[1][len(fake.requests[1])-1]
	assert.True(t, strings.HasPrefix(fed.Content, "Function result: Files in '"), fed.Content)
	assert.Contains(t, fed.Content, "main.py")

	text := out.String()
	assert.Contains(t, text, "🔧 Calling function: get_files_info")
	assert.Contains(t, text, "📋 Function Result:")
	assert.Contains(t, text, "main.py")
	assert.Contains(t, text, "There is one file: main.py.")

	snap := app.stats.Snapshot()
	assert.Equal(t, 2, snap.Requests)
	assert.Zero(t, snap.Failures)
}

func TestAsk_WorkingDirSharedByFileAndExecTools(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses cat and touch")
	}
	fake := &fakeOllama{}
	app, _ := newTestApp(t, fake, func(c *config.Config) {
		c.Execution.WorkingDir = "sandbox"
		c.Execution.ScriptInterpreter = "cat"
	})
	fake.replies = []string{
		`{"function_call": {"name": "write_file", "arguments": {"file_path": "s.py", "content": "print('sandboxed')\n"}}}`,
		`{"function_call": {"name": "run_python_file", "arguments": {"file_path": "s.py"}}}`,
		`{"function_call": {"name": "shell_command", "arguments": {"command": "touch", "args": ["t.txt"]}}}`,
		`{"function_call": {"name": "get_file_content", "arguments": {"file_path": "t.txt"}}}`,
		"done",
	}

	res, err := app.Ask(context.Background(), "write and run a script")
	require.NoError(t, err)
	assert.Equal(t, 4, res.CallsExecuted)
	require.Len(t, fake.requests, 5)

	fed := func(i int) string { return fake.requests[i][len(fake.requests[i])-1].Content }
	assert.Contains(t, fed(1), "Successfully wrote")
	assert.Contains(t, fed(2), "print('sandboxed')", "script runs from the file just written")
	assert.Contains(t, fed(2), "Return code: 0")
	assert.NotContains(t, fed(3), "❌", fed(3))
	assert.True(t, strings.HasPrefix(fed(4), "Function result: Content of 't.txt'"), fed(4))

	sandbox := filepath.Join(app.workspace, "sandbox")
	assert.FileExists(t, filepath.Join(sandbox, "s.py"))
	assert.FileExists(t, filepath.Join(sandbox, "t.txt"))
	assert.NoFileExists(t, filepath.Join(app.workspace, "s.py"))
}

func TestAsk_TransportErrorIsShown(t *testing.T) {
	app, out := newTestApp(t, &fakeOllama{}, func(c *config.Config) {
		c.LLM.APIBase = "http://127.0.0.1:1"
	})

	res, err := app.Ask(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, session.OutcomeTransportError, res.Outcome)
	assert.Contains(t, out.String(), "❌ Error:")
	assert.Equal(t, 1, app.stats.Snapshot().Failures)
}

func TestFileLimitsMapping(t *testing.T) {
	l := fileLimits(config.DefaultLimitsConfig())
	assert.Equal(t, 2000, l.ReadMaxChars)
	assert.Equal(t, 20, l.HeadLines)
	assert.Equal(t, 10, l.TailLines)
	assert.Equal(t, 5, l.SearchMaxMatches)
}
