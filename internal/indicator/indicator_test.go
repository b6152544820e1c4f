package indicator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aryan-manish-vaidya/Aurora/internal/config"
	"github.com/stretchr/testify/require"
)

func hyprConfig() config.IndicatorConfig {
	cfg := config.Default().Indicator
	cfg.Backend = "hypr"
	cfg.SoundEnable = false
	cfg.Enable = true
	return cfg
}

func TestNotifierDispatchesTurnStates(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := hyprConfig()
	cfg.ErrorTimeoutMS = 1600

	notify := NewNotifier(cfg, nil)
	notify.ShowListening(context.Background())
	notify.ShowThinking(context.Background())
	notify.ShowSpeaking(context.Background())
	notify.ShowError(context.Background(), "")
	notify.Hide(context.Background())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, []string{
		"--quiet dispatch notify 1 300000 rgb(89b4fa) Listening...",
		"--quiet dispatch notify 1 300000 rgb(cba6f7) Thinking...",
		"--quiet dispatch notify 1 300000 rgb(a6e3a1) Speaking...",
		"--quiet dispatch notify 3 1600 rgb(f38ba8) Error",
		"--quiet dispatch dismissnotify",
	}, lines)
}

func TestNotifierShowErrorUsesProvidedTextAndDefaultTimeout(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := hyprConfig()
	cfg.ErrorTimeoutMS = 0

	notify := NewNotifier(cfg, nil)
	notify.ShowError(context.Background(), "No speech was detected. Please try again.")

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t, "--quiet dispatch notify 3 1200 rgb(f38ba8) No speech was detected. Please try again.\n", string(data))
}

func TestNotifierDisabledSkipsDispatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := hyprConfig()
	cfg.Enable = false

	notify := NewNotifier(cfg, nil)
	notify.ShowListening(context.Background())
	notify.ShowThinking(context.Background())
	notify.ShowError(context.Background(), "ignored")
	notify.Hide(context.Background())

	_, err := os.Stat(argsFile)
	require.True(t, os.IsNotExist(err))
}

func TestNotifierDesktopBackendReplacesAndDismisses(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installStub(t, "busctl", `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "$*" == *" Notify "* ]]; then
  echo 'u 42'
fi
`)

	cfg := hyprConfig()
	cfg.Backend = "desktop"
	cfg.DesktopAppName = "aurora"

	notify := NewNotifier(cfg, nil)
	notify.ShowListening(context.Background())
	notify.ShowThinking(context.Background())
	notify.Hide(context.Background())
	notify.Hide(context.Background())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "Notify susssasa{sv}i aurora 0  Listening...  0 1 urgency y 1 300000")
	require.Contains(t, lines[1], "Notify susssasa{sv}i aurora 42  Thinking...  0 1 urgency y 1 300000")
	require.Contains(t, lines[2], "CloseNotification u 42")
}

func TestNotifierPlaysCuesThroughPlayer(t *testing.T) {
	cfg := hyprConfig()
	cfg.Enable = false
	cfg.SoundEnable = true

	var (
		mu    sync.Mutex
		rates []int
		names []string
	)
	notify := NewNotifier(cfg, nil)
	notify.play = func(_ context.Context, samples []int16, sampleRate int, mediaName string) error {
		require.NotEmpty(t, samples)
		mu.Lock()
		defer mu.Unlock()
		rates = append(rates, sampleRate)
		names = append(names, mediaName)
		return nil
	}

	notify.ShowListening(context.Background())
	notify.ShowError(context.Background(), "boom")
	notify.ShowSpeaking(context.Background())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(rates) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{cueSampleRate, cueSampleRate}, rates)
	require.Equal(t, "aurora indicator cue", names[0])
}

func installHyprctlStub(t *testing.T, body string) {
	t.Helper()
	installStub(t, "hyprctl", body)
}

func installStub(t *testing.T, name, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}

func TestNotifierDesktopErrorIsCritical(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installStub(t, "busctl", `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
echo 'u 7'
`)

	cfg := hyprConfig()
	cfg.Backend = "desktop"
	cfg.DesktopAppName = "aurora"
	cfg.ErrorTimeoutMS = 900

	NewNotifier(cfg, nil).ShowError(context.Background(), "Network offline")

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "Network offline  0 1 urgency y 2 900")
}

func TestDesktopNotifyRejectsUnexpectedReply(t *testing.T) {
	installStub(t, "busctl", `echo 's nope'`)

	_, err := desktopNotify(context.Background(), "aurora", 0, "hi", urgencyNormal, 100)
	require.ErrorContains(t, err, "unexpected Notify reply")
}
