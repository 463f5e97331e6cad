package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_DisabledWritesNothing(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(CloseAll)

	require.NoError(t, Initialize(dir, Config{DebugMode: false}))

	Tools("should not appear")
	_, err := os.Stat(filepath.Join(dir, ".localcoder", "logs"))
	assert.True(t, os.IsNotExist(err), "logs dir must not be created outside debug mode")
	assert.False(t, IsCategoryEnabled(CategoryTools))
}

func TestInitialize_RequiresWorkspace(t *testing.T) {
	assert.Error(t, Initialize("", Config{}))
}

func TestCategoryLogFiles(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() {
		CloseAll()
		_ = Initialize(dir, Config{})
	})

	require.NoError(t, Initialize(dir, Config{
		DebugMode:  true,
		Level:      "debug",
		Categories: map[string]bool{"shell": false},
	}))

	TactileDebug("spawned %s", "ls")
	Shell("filtered out")
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(dir, ".localcoder", "logs"))
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "_tactile.log")
	assert.Contains(t, joined, "_boot.log")
	assert.NotContains(t, joined, "_shell.log")

	for _, name := range names {
		if strings.HasSuffix(name, "_tactile.log") {
			data, err := os.ReadFile(filepath.Join(dir, ".localcoder", "logs", name))
			require.NoError(t, err)
			assert.Contains(t, string(data), "spawned ls")
		}
	}
}

func TestTimer(t *testing.T) {
	timer := StartTimer(CategorySession, "noop")
	assert.GreaterOrEqual(t, int64(timer.Stop()), int64(0))
}
