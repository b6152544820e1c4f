package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLogPathUsesXDGStateHome(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("HOME", t.TempDir())

	path, err := resolveLogPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdgStateHome, "aurora", "log.jsonl"), path)
}

func TestResolveLogPathFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", home)

	path, err := resolveLogPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "state", "aurora", "log.jsonl"), path)
}

func TestNewCreatesWritableJSONLogFile(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	runtime, err := New("info")
	require.NoError(t, err)

	runtime.Logger.Info("unit-test-log", "component", "logging")
	require.NoError(t, runtime.Close())

	contents, err := os.ReadFile(runtime.Path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"msg":"unit-test-log"`)
	require.Contains(t, string(contents), `"component":"logging"`)

	stat, err := os.Stat(runtime.Path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
}

func TestNewRespectsLevel(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	runtime, err := New("warn")
	require.NoError(t, err)
	runtime.Logger.Info("dropped")
	runtime.Logger.Warn("kept")
	require.NoError(t, runtime.Close())

	contents, err := os.ReadFile(runtime.Path)
	require.NoError(t, err)
	require.NotContains(t, string(contents), "dropped")
	require.Contains(t, string(contents), "kept")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, lvl)

	lvl, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, lvl)

	_, err = ParseLevel("trace")
	require.Error(t, err)
}

func TestRotateMovesOversizedLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")

	require.NoError(t, rotate(path, 4))

	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))
	require.NoError(t, rotate(path, 4))
	require.FileExists(t, path)
	require.NoFileExists(t, path+".1")

	require.NoError(t, os.WriteFile(path, []byte("abcdef"), 0o600))
	require.NoError(t, os.WriteFile(path+".1", []byte("old"), 0o600))
	require.NoError(t, rotate(path, 4))
	require.NoFileExists(t, path)

	rotated, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	require.Equal(t, "abcdef", string(rotated))
}

func TestNewRecordsLevel(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	runtime, err := New("warning")
	require.NoError(t, err)
	defer runtime.Close()
	require.Equal(t, slog.LevelWarn, runtime.Level)
}
