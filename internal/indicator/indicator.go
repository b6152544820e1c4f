// Package indicator handles visual turn-state notifications and audio cue playback.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aryan-manish-vaidya/Aurora/internal/audio"
	"github.com/aryan-manish-vaidya/Aurora/internal/config"
	"github.com/aryan-manish-vaidya/Aurora/internal/hypr"
)

// Controller is the session-facing indicator contract.
type Controller interface {
	ShowListening(context.Context)
	ShowThinking(context.Context)
	ShowSpeaking(context.Context)
	ShowError(context.Context, string)
	Hide(context.Context)
}

// Hyprland notify icons.
const (
	hyprIconInfo  = 1
	hyprIconError = 3
)

// stickyTimeoutMS keeps a state notification up until it is replaced or hidden.
const stickyTimeoutMS = 300000

// CuePlayer plays mono s16 cue samples.
type CuePlayer func(ctx context.Context, samples []int16, sampleRate int, mediaName string) error

// Notifier routes indicator output via Hyprland or desktop DBus based on config backend.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	play     CuePlayer

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex
}

// NewNotifier creates an indicator controller from config.
func NewNotifier(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		play:     audio.Play,
	}
}

// ShowListening signals capture start and emits the listen cue.
func (n *Notifier) ShowListening(ctx context.Context) {
	n.playCue(cueListen)
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hyprIconInfo, stickyTimeoutMS, "rgb(89b4fa)", n.messages.listening)
	})
}

// ShowThinking signals that a reply is being generated.
func (n *Notifier) ShowThinking(ctx context.Context) {
	n.playCue(cueThinking)
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hyprIconInfo, stickyTimeoutMS, "rgb(cba6f7)", n.messages.thinking)
	})
}

// ShowSpeaking signals playback of the reply.
func (n *Notifier) ShowSpeaking(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hyprIconInfo, stickyTimeoutMS, "rgb(a6e3a1)", n.messages.speaking)
	})
}

// ShowError displays an error-state indicator message.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	n.playCue(cueError)
	if !n.cfg.Enable {
		return
	}
	if text == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hyprIconError, timeout, "rgb(f38ba8)", text)
	})
}

// Hide dismisses the active indicator surface.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

// notify dispatches indicator output through the configured backend.
func (n *Notifier) notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if n.desktop() {
		urgency := urgencyNormal
		if icon == hyprIconError {
			urgency = urgencyCritical
		}
		return n.notifyDesktop(ctx, timeoutMS, urgency, text)
	}
	return hypr.Notify(ctx, icon, timeoutMS, color, text)
}

// dismiss removes indicator output from the configured backend.
func (n *Notifier) dismiss(ctx context.Context) error {
	if n.desktop() {
		return n.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

func (n *Notifier) desktop() bool {
	return strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop")
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, urgency int, text string) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "aurora"
	}

	id, err := desktopNotify(ctx, appName, replaceID, text, urgency, timeoutMS)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := emitCue(ctx, n.play, kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
