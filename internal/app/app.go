// Package app dispatches aurora commands to the running assistant or runs it in-process.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aryan-manish-vaidya/Aurora/internal/audio"
	"github.com/aryan-manish-vaidya/Aurora/internal/cli"
	"github.com/aryan-manish-vaidya/Aurora/internal/config"
	"github.com/aryan-manish-vaidya/Aurora/internal/doctor"
	"github.com/aryan-manish-vaidya/Aurora/internal/ipc"
	"github.com/aryan-manish-vaidya/Aurora/internal/logging"
	"github.com/aryan-manish-vaidya/Aurora/internal/playback"
	"github.com/aryan-manish-vaidya/Aurora/internal/version"
)

const forwardTimeout = 220 * time.Millisecond

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("aurora"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("aurora"))
		return 0
	}

	switch parsed.Command {
	case cli.CommandVersion:
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	case cli.CommandSchema:
		return r.commandSchema()
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.LogLevel)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandRun:
		return r.runAssistant(ctx, cfgLoaded.Config, logger, true)
	case cli.CommandServe:
		return r.runAssistant(ctx, cfgLoaded.Config, logger, false)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandVoices:
		return r.commandVoices(ctx, cfgLoaded.Config, logger)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandTranscript:
		return r.commandTranscript(ctx)
	case cli.CommandListen:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandListen})
	case cli.CommandSay:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandSay, Text: parsed.Text})
	case cli.CommandDismiss:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandDismiss})
	case cli.CommandCredential:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandCredential, Text: parsed.Text})
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandSchema() int {
	schema, err := config.Schema()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, string(schema))
	return 0
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		fmt.Fprintln(r.Stdout, formatDevice(device))
	}
	return 0
}

// formatDevice renders one source as "* id | description | state[, flags]".
// The leading mark flags the server default.
func formatDevice(device audio.Device) string {
	mark := " "
	if device.Default {
		mark = "*"
	}
	state := device.State
	if !device.Available {
		state += ", unavailable"
	}
	if device.Muted {
		state += ", muted"
	}
	return fmt.Sprintf("%s %s | %s | %s", mark, device.ID, device.Description, state)
}

func (r Runner) commandVoices(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	synth, err := newSynthesizer(cfg.Playback, cfg.Deepgram, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	adapter := playback.NewAdapter(synth, playbackConfig(cfg.Playback), nil, logger)
	voices, selected, err := adapter.Voices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(voices) == 0 {
		fmt.Fprintln(r.Stdout, "no voices found")
		return 1
	}

	for _, voice := range voices {
		mark := " "
		if voice.Name == selected {
			mark = "*"
		}
		fmt.Fprintf(r.Stdout, "%s %s | %s\n", mark, voice.Name, voice.Description)
	}
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "stopped")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus})
	if !handled {
		fmt.Fprintln(r.Stdout, "stopped")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.State == "" {
		resp.State = "idle"
	}
	fmt.Fprintln(r.Stdout, resp.State)
	if resp.ErrorMessage != "" {
		fmt.Fprintf(r.Stdout, "error: %s\n", resp.ErrorMessage)
	}
	return 0
}

func (r Runner) commandTranscript(ctx context.Context) int {
	resp, code := r.forward(ctx, ipc.Request{Command: ipc.CommandTranscript})
	if code != 0 {
		return code
	}
	for _, turn := range resp.Turns {
		fmt.Fprintf(r.Stdout, "%s: %s\n", turn.Speaker, turn.Text)
	}
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	resp, code := r.forward(ctx, req)
	if code != 0 {
		return code
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) forward(ctx context.Context, req ipc.Request) (ipc.Response, int) {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return ipc.Response{}, 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no running aurora assistant\n")
		return ipc.Response{}, 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return ipc.Response{}, 1
	}
	return resp, 0
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.NoListener(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}
