package tactile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("POSIX utilities required")
	}
}

func TestDirectExecutor_Execute(t *testing.T) {
	skipOnWindows(t)
	executor := NewDirectExecutor()

	result, err := executor.Execute(context.Background(), Command{
		Binary:    "echo",
		Arguments: []string{"hello"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", result.ExitCode)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Errorf("Expected stdout 'hello', got %q", result.Stdout)
	}
	if result.TimedOut {
		t.Error("Expected TimedOut=false")
	}
	if !result.Succeeded() {
		t.Error("Expected Succeeded()")
	}
}

func TestDirectExecutor_NoShellInterpretation(t *testing.T) {
	skipOnWindows(t)
	executor := NewDirectExecutor()

	result, err := executor.Execute(context.Background(), Command{
		Binary:    "echo",
		Arguments: []string{"a; echo injected", "$(whoami)"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	want := "a; echo injected $(whoami)"
	if strings.TrimSpace(result.Stdout) != want {
		t.Errorf("arguments must reach the program literally: got %q, want %q", result.Stdout, want)
	}
}

func TestDirectExecutor_Timeout(t *testing.T) {
	skipOnWindows(t)
	executor := NewDirectExecutor()

	start := time.Now()
	result, err := executor.Execute(context.Background(), Command{
		Binary:    "sleep",
		Arguments: []string{"10"},
		Timeout:   300 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("timeout must be reported in the result, got error: %v", err)
	}
	if !result.TimedOut {
		t.Error("Expected TimedOut=true")
	}
	if result.ExitCode != NoExitCode {
		t.Errorf("Expected sentinel exit code %d, got %d", NoExitCode, result.ExitCode)
	}
	if elapsed > 5*time.Second {
		t.Errorf("process was not killed promptly: %v", elapsed)
	}
}

func TestDirectExecutor_NonZeroExit(t *testing.T) {
	skipOnWindows(t)
	executor := NewDirectExecutor()

	result, err := executor.Execute(context.Background(), Command{
		Binary:    "ls",
		Arguments: []string{"/definitely/not/a/real/path"},
	})
	if err != nil {
		t.Fatalf("non-zero exit must not be an error: %v", err)
	}
	if result.ExitCode == 0 {
		t.Error("Expected non-zero exit code")
	}
	if result.Stderr == "" {
		t.Error("Expected stderr output")
	}
	if result.Stdout != "" {
		t.Errorf("stderr leaked into stdout: %q", result.Stdout)
	}
}

func TestDirectExecutor_ExecutableNotFound(t *testing.T) {
	executor := NewDirectExecutor()

	result, err := executor.Execute(context.Background(), Command{
		Binary: "nonexistent_command_xyz_12345",
	})
	if !errors.Is(err, ErrExecutableNotFound) {
		t.Fatalf("Expected ErrExecutableNotFound, got %v", err)
	}
	if result != nil {
		t.Error("Expected nil result for a process that never started")
	}
}

func TestDirectExecutor_EmptyBinary(t *testing.T) {
	if _, err := NewDirectExecutor().Execute(context.Background(), Command{}); err == nil {
		t.Error("Expected error for empty binary")
	}
}

func TestDirectExecutor_WorkingDirectory(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "marker.txt"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	result, err := NewDirectExecutor().Execute(context.Background(), Command{
		Binary:           "ls",
		WorkingDirectory: dir,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Stdout, "marker.txt") {
		t.Errorf("Expected listing of %s, got %q", dir, result.Stdout)
	}
}

func TestDirectExecutor_OutputTruncation(t *testing.T) {
	skipOnWindows(t)
	executor := NewDirectExecutorWithConfig(ExecutorConfig{
		DefaultTimeout:     5 * time.Second,
		MaxOutputBytes:     8,
		AllowedEnvironment: []string{"PATH"},
	})

	result, err := executor.Execute(context.Background(), Command{
		Binary:    "echo",
		Arguments: []string{"0123456789abcdef"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Truncated {
		t.Error("Expected Truncated=true")
	}
	if len(result.Stdout) != 8 {
		t.Errorf("Expected 8 bytes of stdout, got %d", len(result.Stdout))
	}
	if result.TruncatedBytes != 9 {
		t.Errorf("Expected 9 discarded bytes, got %d", result.TruncatedBytes)
	}
}

func TestDirectExecutor_ContextCancellation(t *testing.T) {
	skipOnWindows(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	result, err := NewDirectExecutor().Execute(ctx, Command{
		Binary:    "sleep",
		Arguments: []string{"10"},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if result == nil || result.TimedOut {
		t.Error("cancellation is not a timeout")
	}
}

func TestDirectExecutor_AuditEvents(t *testing.T) {
	skipOnWindows(t)
	executor := NewDirectExecutor()

	var mu sync.Mutex
	var events []AuditEventType
	executor.SetAuditCallback(func(ev AuditEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev.Type)
	})

	if _, err := executor.Execute(context.Background(), Command{Binary: "pwd"}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	_, _ = executor.Execute(context.Background(), Command{Binary: "no_such_binary_here"})

	mu.Lock()
	defer mu.Unlock()
	want := []AuditEventType{AuditEventStart, AuditEventComplete, AuditEventError}
	if len(events) != len(want) {
		t.Fatalf("got events %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, events[i], want[i])
		}
	}
}

func TestCommand_CommandString(t *testing.T) {
	cmd := Command{Binary: "mkdir", Arguments: []string{"-p", "src"}}
	if got := cmd.CommandString(); got != "mkdir -p src" {
		t.Errorf("CommandString() = %q", got)
	}
	if got := len(cmd.Argv()); got != 3 {
		t.Errorf("Argv() length = %d", got)
	}
}

func TestLimitedWriter(t *testing.T) {
	var sb strings.Builder
	lw := &limitedWriter{w: &sb, max: 5}

	n, err := lw.Write([]byte("abc"))
	if n != 3 || err != nil {
		t.Fatalf("first write: n=%d err=%v", n, err)
	}
	n, _ = lw.Write([]byte("defg"))
	if n != 4 {
		t.Errorf("partial write must report full length, got %d", n)
	}
	n, _ = lw.Write([]byte("hij"))
	if n != 3 {
		t.Errorf("discarded write must report full length, got %d", n)
	}
	if sb.String() != "abcde" || !lw.truncated || lw.discarded != 5 {
		t.Errorf("got %q truncated=%v discarded=%d", sb.String(), lw.truncated, lw.discarded)
	}
}
