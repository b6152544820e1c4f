package config

import (
	"fmt"
	"net/url"
	"strings"
)

var (
	validLogLevels        = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}
	validCaptureBackends  = map[string]struct{}{"deepgram": {}, "exec": {}}
	validPlaybackBackends = map[string]struct{}{"deepgram": {}, "espeak": {}}
	validSpeakSampleRates = map[int]struct{}{8000: {}, 16000: {}, 24000: {}, 32000: {}, 48000: {}}
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if _, ok := validLogLevels[strings.ToLower(strings.TrimSpace(cfg.LogLevel))]; !ok {
		return nil, fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	endpoint := strings.TrimSpace(cfg.Inference.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("inference.endpoint must not be empty")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("inference.endpoint must be an http(s) URL")
	}
	if strings.TrimSpace(cfg.Inference.Model) == "" {
		return nil, fmt.Errorf("inference.model must not be empty")
	}
	if cfg.Inference.TimeoutMS <= 0 {
		return nil, fmt.Errorf("inference.timeout_ms must be > 0")
	}
	if cfg.Inference.MaxHistoryTurns < 0 {
		return nil, fmt.Errorf("inference.max_history_turns must be >= 0")
	}
	if strings.TrimSpace(cfg.Inference.Persona) == "" {
		warnings = append(warnings, Warning{Message: "inference.persona is empty; replies will have no system instruction"})
	}

	capture := strings.ToLower(strings.TrimSpace(cfg.Capture.Backend))
	if _, ok := validCaptureBackends[capture]; !ok {
		return nil, fmt.Errorf("capture.backend must be one of: deepgram, exec")
	}
	if strings.TrimSpace(cfg.Capture.Locale) == "" {
		return nil, fmt.Errorf("capture.locale must not be empty")
	}
	if cfg.Capture.NoSpeechTimeoutMS <= 0 {
		return nil, fmt.Errorf("capture.no_speech_timeout_ms must be > 0")
	}
	if cfg.Capture.Deepgram.EndpointingMS < 0 {
		return nil, fmt.Errorf("capture.deepgram.endpointing_ms must be >= 0")
	}
	if ms := cfg.Capture.Deepgram.UtteranceEndMS; ms != 0 && ms < 1000 {
		return nil, fmt.Errorf("capture.deepgram.utterance_end_ms must be 0 or >= 1000")
	}
	if capture == "deepgram" && strings.TrimSpace(cfg.Capture.Deepgram.Model) == "" {
		return nil, fmt.Errorf("capture.deepgram.model must not be empty when capture.backend=deepgram")
	}
	if capture == "exec" {
		if cfg.Capture.Exec.Command.Raw != "" && len(cfg.Capture.Exec.Command.Argv) == 0 {
			return nil, fmt.Errorf("capture.exec.command is configured but empty")
		}
		if len(cfg.Capture.Exec.Command.Argv) == 0 {
			return nil, fmt.Errorf("capture.exec.command must not be empty when capture.backend=exec")
		}
		if cfg.Capture.Exec.WindowMS <= 0 {
			return nil, fmt.Errorf("capture.exec.window_ms must be > 0")
		}
	}

	playback := strings.ToLower(strings.TrimSpace(cfg.Playback.Backend))
	if _, ok := validPlaybackBackends[playback]; !ok {
		return nil, fmt.Errorf("playback.backend must be one of: deepgram, espeak")
	}
	if cfg.Playback.Pitch <= 0 || cfg.Playback.Pitch > 2 {
		return nil, fmt.Errorf("playback.pitch must be in (0, 2]")
	}
	if cfg.Playback.Rate <= 0 || cfg.Playback.Rate > 10 {
		return nil, fmt.Errorf("playback.rate must be in (0, 10]")
	}
	if playback == "espeak" && len(cfg.Playback.Command.Argv) == 0 {
		return nil, fmt.Errorf("playback.command must not be empty when playback.backend=espeak")
	}
	if playback == "deepgram" {
		if _, ok := validSpeakSampleRates[cfg.Playback.Deepgram.SampleRate]; !ok {
			return nil, fmt.Errorf("playback.deepgram.sample_rate must be one of: 8000, 16000, 24000, 32000, 48000")
		}
	}

	if (capture == "deepgram" || playback == "deepgram") && strings.TrimSpace(cfg.Deepgram.APIKey) == "" {
		warnings = append(warnings, Warning{Message: "deepgram.api_key is empty; set DEEPGRAM_API_KEY before speaking or listening"})
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if strings.TrimSpace(cfg.Events.NATSURL) != "" && strings.TrimSpace(cfg.Events.Subject) == "" {
		return nil, fmt.Errorf("events.subject must not be empty when events.nats_url is set")
	}

	if cfg.Telemetry.OTLPInsecure && strings.TrimSpace(cfg.Telemetry.OTLPEndpoint) == "" {
		warnings = append(warnings, Warning{Message: "telemetry.otlp_insecure has no effect without telemetry.otlp_endpoint"})
	}

	return warnings, nil
}
