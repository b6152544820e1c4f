package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aryan-manish-vaidya/Aurora/internal/capture"
	"github.com/aryan-manish-vaidya/Aurora/internal/config"
	"github.com/aryan-manish-vaidya/Aurora/internal/events"
	"github.com/aryan-manish-vaidya/Aurora/internal/indicator"
	"github.com/aryan-manish-vaidya/Aurora/internal/inference"
	"github.com/aryan-manish-vaidya/Aurora/internal/ipc"
	"github.com/aryan-manish-vaidya/Aurora/internal/playback"
	"github.com/aryan-manish-vaidya/Aurora/internal/session"
	"github.com/aryan-manish-vaidya/Aurora/internal/telemetry"
	"github.com/aryan-manish-vaidya/Aurora/internal/tui"
)

const telemetryShutdownTimeout = 2 * time.Second

// runAssistant owns the runtime socket for the lifetime of one assistant process.
func (r Runner) runAssistant(ctx context.Context, cfg config.Config, logger *slog.Logger, withUI bool) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err.Error())
		}
	}()

	logger = providers.Logger(logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if addr, err := providers.Serve(runCtx, cfg.Telemetry.MetricsBind); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	} else if addr != "" {
		logger.Info("metrics listening", "addr", addr)
	}

	ctrl, err := buildController(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	bridge, err := events.Connect(runCtx, cfg.Events, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if bridge != nil {
		defer bridge.Close()
		unsubscribe := ctrl.Subscribe(func(view session.View) {
			if err := bridge.PublishView(view); err != nil {
				logger.Debug("publish view failed", "error", err.Error())
			}
		})
		defer unsubscribe()
		if err := bridge.Serve(runCtx, ctrl); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
	}

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- ctrl.Run(runCtx)
	}()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(runCtx, listener, ctrl)
	}()

	logger.Info("assistant started", "socket", socketPath, "ui", withUI)

	exitCode := 0
	if withUI {
		if err := tui.Run(runCtx, ctrl, ctrl.Subscribe); err != nil {
			fmt.Fprintf(r.Stderr, "error: terminal ui failed: %v\n", err)
			exitCode = 1
		}
		cancel()
	} else {
		<-runCtx.Done()
	}

	if err := <-runErrCh; err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		exitCode = 1
	}
	if err := <-serverErrCh; err != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", err)
		exitCode = 1
	}

	logger.Info("assistant stopped", "exit_code", exitCode)
	return exitCode
}

// buildController wires the configured capabilities to a new controller.
func buildController(cfg config.Config, logger *slog.Logger) (*session.Controller, error) {
	synth, err := newSynthesizer(cfg.Playback, cfg.Deepgram, logger)
	if err != nil {
		return nil, err
	}

	// Adapters report back through the controller, which does not exist yet
	// when they are built. Sinks only fire after Run starts.
	var ctrl *session.Controller
	captureAdapter := capture.NewAdapter(
		newCaptureCapability(cfg.Capture, cfg.Deepgram, logger),
		cfg.Capture.Locale,
		func(event capture.Event) { ctrl.OnCapture(event) },
		logger,
	)
	playbackAdapter := playback.NewAdapter(
		synth,
		playbackConfig(cfg.Playback),
		func(event playback.Event) { ctrl.OnPlayback(event) },
		logger,
	)
	client := inference.NewClient(inference.Config{
		Endpoint:        cfg.Inference.Endpoint,
		Model:           cfg.Inference.Model,
		Persona:         cfg.Inference.Persona,
		Timeout:         time.Duration(cfg.Inference.TimeoutMS) * time.Millisecond,
		MaxHistoryTurns: cfg.Inference.MaxHistoryTurns,
	}, inference.WithLogger(logger))

	var ind session.Indicator
	if cfg.Indicator.Enable {
		ind = indicator.NewNotifier(cfg.Indicator, logger)
	}

	ctrl = session.NewController(session.Options{
		Logger:     logger,
		Capture:    captureAdapter,
		Inference:  client,
		Playback:   playbackAdapter,
		Indicator:  ind,
		Credential: cfg.Inference.APIKey,
	})
	return ctrl, nil
}

func newCaptureCapability(cfg config.CaptureConfig, dg config.DeepgramConfig, logger *slog.Logger) capture.Capability {
	mic := capture.PulseMicrophone(cfg.Input, cfg.Fallback, logger)
	if strings.EqualFold(cfg.Backend, "exec") {
		return capture.NewExec(capture.ExecConfig{
			Argv:   cfg.Exec.Command.Argv,
			Window: time.Duration(cfg.Exec.WindowMS) * time.Millisecond,
		}, mic, logger)
	}
	return capture.NewDeepgram(capture.DeepgramConfig{
		APIKey:          dg.APIKey,
		Model:           cfg.Deepgram.Model,
		EndpointingMS:   cfg.Deepgram.EndpointingMS,
		UtteranceEndMS:  cfg.Deepgram.UtteranceEndMS,
		NoSpeechTimeout: time.Duration(cfg.NoSpeechTimeoutMS) * time.Millisecond,
	}, mic, logger)
}

func newSynthesizer(cfg config.PlaybackConfig, dg config.DeepgramConfig, logger *slog.Logger) (playback.Synthesizer, error) {
	if strings.EqualFold(cfg.Backend, "espeak") {
		return playback.NewEspeak(cfg.Command.Argv)
	}
	return playback.NewDeepgram(playback.DeepgramConfig{
		APIKey:     dg.APIKey,
		SampleRate: cfg.Deepgram.SampleRate,
	}, logger), nil
}

func playbackConfig(cfg config.PlaybackConfig) playback.Config {
	return playback.Config{
		Preferences: cfg.Voices,
		Pitch:       cfg.Pitch,
		Rate:        cfg.Rate,
	}
}
