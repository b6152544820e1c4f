package hypr

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotifyAndDismissUseHyprctlDispatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	err := Notify(context.Background(), 3, 2400, "", "Microphone access denied.")
	require.NoError(t, err)

	err = DismissNotify(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "--quiet dispatch notify 3 2400 rgb(89b4fa) Microphone access denied.", lines[0])
	require.Equal(t, "--quiet dispatch dismissnotify", lines[1])
}

func TestNotifyReturnsCombinedOutputOnFailure(t *testing.T) {
	installHyprctlStub(t, `
echo 'boom from hyprctl' >&2
exit 1
`)

	err := Notify(context.Background(), 1, 100, "rgb(a6e3a1)", "Listening...")
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom from hyprctl")
}

func TestVersionReturnsFirstLine(t *testing.T) {
	installHyprctlStub(t, `
if [[ "${1:-}" == "version" ]]; then
  printf 'Hyprland 0.50.1 built from branch main\nDate: today\n'
  exit 0
fi
exit 1
`)

	version, err := Version(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Hyprland 0.50.1 built from branch main", version)
}

func installHyprctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "hyprctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
