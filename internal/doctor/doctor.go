// Package doctor runs readiness diagnostics for config, credentials, tools, audio, and endpoints.
package doctor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/aryan-manish-vaidya/Aurora/internal/audio"
	"github.com/aryan-manish-vaidya/Aurora/internal/config"
	"github.com/aryan-manish-vaidya/Aurora/internal/events"
	"github.com/aryan-manish-vaidya/Aurora/internal/hypr"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks, checkSecret("inference.api_key", cfg.Inference.APIKey,
		"credential configured", "no credential; set GEMINI_API_KEY or use `aurora credential`"))
	checks = append(checks, checkEndpoint(ctx, cfg.Inference.Endpoint))

	switch strings.ToLower(cfg.Capture.Backend) {
	case "exec":
		checks = append(checks, checkCommand(cfg.Capture.Exec.Command.Argv, "capture.exec"))
	default:
		checks = append(checks, checkSecret("capture.deepgram", cfg.Deepgram.APIKey,
			"Deepgram key configured", "no Deepgram key; set DEEPGRAM_API_KEY"))
	}
	checks = append(checks, checkAudioSelection(ctx, cfg))

	switch strings.ToLower(cfg.Playback.Backend) {
	case "espeak":
		checks = append(checks, checkCommand(cfg.Playback.Command.Argv, "playback.espeak"))
	default:
		checks = append(checks, checkSecret("playback.deepgram", cfg.Deepgram.APIKey,
			"Deepgram key configured", "no Deepgram key; set DEEPGRAM_API_KEY"))
	}

	if cfg.Indicator.Enable {
		checks = append(checks, checkIndicator(ctx, cfg.Indicator)...)
	}
	if strings.TrimSpace(cfg.Events.NATSURL) != "" {
		checks = append(checks, checkEvents(ctx, cfg.Events))
	}

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if n := len(loaded.Warnings); n > 0 {
		message = fmt.Sprintf("%s (%d warning(s))", message, n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

func checkSecret(name, value, okMsg, failMsg string) Check {
	if strings.TrimSpace(value) == "" {
		return Check{Name: name, Pass: false, Message: failMsg}
	}
	return Check{Name: name, Pass: true, Message: okMsg}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Capture.Input, cfg.Capture.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkEndpoint confirms the inference endpoint answers HTTP. Any non-5xx
// status counts as reachable since the base URL has no health route.
func checkEndpoint(ctx context.Context, endpoint string) Check {
	base := strings.TrimSpace(endpoint)
	if base == "" {
		return Check{Name: "inference.endpoint", Pass: false, Message: "endpoint is empty"}
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return Check{Name: "inference.endpoint", Pass: false, Message: fmt.Sprintf("invalid endpoint: %v", err)}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Check{Name: "inference.endpoint", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Check{Name: "inference.endpoint", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, base)}
	}
	return Check{Name: "inference.endpoint", Pass: true, Message: fmt.Sprintf("reachable at %s (HTTP %d)", base, resp.StatusCode)}
}

func checkIndicator(ctx context.Context, cfg config.IndicatorConfig) []Check {
	if strings.EqualFold(cfg.Backend, "hypr") {
		session := checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty")
		return []Check{session, checkHyprctl(ctx)}
	}
	return []Check{checkBinary("busctl", "desktop notifications available")}
}

func checkHyprctl(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	version, err := hypr.Version(ctx)
	if err != nil {
		return Check{Name: "hyprctl", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hyprctl", Pass: true, Message: version}
}

func checkEvents(ctx context.Context, cfg config.EventsConfig) Check {
	bridge, err := events.Connect(ctx, cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		return Check{Name: "events.nats", Pass: false, Message: err.Error()}
	}
	defer bridge.Close()
	return Check{Name: "events.nats", Pass: true, Message: fmt.Sprintf("connected to %s", cfg.NATSURL)}
}
